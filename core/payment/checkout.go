package payment

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/user"
)

type Step string

const (
	StepDetails Step = "details"
	StepPayment Step = "payment"
	StepVerify  Step = "verify"
)

type (
	// Authenticator resolves the purchaser behind ctx. A nil user with a nil error means nobody is signed in.
	Authenticator interface {
		CurrentUser(ctx context.Context) (*user.User, error)
	}

	// Ledger is where a checkout files its payment request.
	Ledger interface {
		Create(ctx context.Context, nr NewPaymentRequest) (PaymentRequest, error)
	}

	CheckoutDeps struct {
		Auth    Authenticator
		Storage core.ObjectStorage
		Ledger  Ledger
		Logger  core.Logger
	}

	// Proof is the screenshot a purchaser attaches as evidence of the transfer.
	Proof struct {
		Name string
		Size int64 // declared size; len(Data) when zero
		Data []byte
	}

	// AuthFunc adapts a plain function to Authenticator.
	AuthFunc func(ctx context.Context) (*user.User, error)
)

func (f AuthFunc) CurrentUser(ctx context.Context) (*user.User, error) { return f(ctx) }

func (p Proof) size() int64 {
	if p.Size > 0 {
		return p.Size
	}
	return int64(len(p.Data))
}

// Checkout holds one purchase attempt while the purchaser fills it in.
// Nothing is written anywhere until Submit succeeds.
type Checkout struct {
	deps     CheckoutDeps
	courseID string
	amount   decimal.Decimal

	mu             sync.Mutex
	step           Step
	userID         string
	senderName     string
	transactionRef string
	proof          *Proof
	proofType      string
	acknowledged   bool
	submitting     bool
	request        *PaymentRequest
}

func NewCheckout(courseID string, amount decimal.Decimal, deps CheckoutDeps) *Checkout {
	return &Checkout{
		deps:     deps,
		courseID: courseID,
		amount:   amount,
		step:     StepDetails,
	}
}

func (c *Checkout) CourseID() string        { return c.courseID }
func (c *Checkout) Amount() decimal.Decimal { return c.amount }

func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// ResumeTarget is where a purchaser sent away to sign in comes back to.
func (c *Checkout) ResumeTarget() string {
	return fmt.Sprintf("/courses/%s/checkout?step=%s", c.courseID, StepPayment)
}

// Request returns the payment request filed by a successful Submit.
func (c *Checkout) Request() (PaymentRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.request == nil {
		return PaymentRequest{}, false
	}
	return *c.request, true
}

func (c *Checkout) currentUser(ctx context.Context) (*user.User, error) {
	usr, err := c.deps.Auth.CurrentUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolving current user")
	}
	if usr == nil {
		return nil, &AuthRequiredError{Resume: c.ResumeTarget()}
	}
	return usr, nil
}

// Advance moves the checkout from details to payment. The purchaser must be signed in.
// The move to verify only happens through Submit.
func (c *Checkout) Advance(ctx context.Context) error {
	switch c.Step() {
	case StepPayment:
		return ErrStepOrder
	case StepVerify:
		return ErrSessionClosed
	}

	usr, err := c.currentUser(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = usr.ID
	c.step = StepPayment
	return nil
}

func (c *Checkout) SetSenderName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.senderName = core.CleanString(name)
}

// SetTransactionReference keeps the digits of value and drops everything else.
// Its length is only checked by Submit.
func (c *Checkout) SetTransactionReference(value string) string {
	ref := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactionRef = ref
	return ref
}

// AttachProof replaces any previously attached proof.
func (c *Checkout) AttachProof(p Proof) error {
	if p.size() > MaxProofSize {
		return core.NewValidationError(ErrFileTooLarge, core.FieldError{Field: "proof", Error: ErrFileTooLarge.Error()})
	}
	contentType := http.DetectContentType(p.Data)
	if _, ok := proofExtensions[contentType]; !ok {
		return core.NewValidationError(ErrUnsupportedProof, core.FieldError{Field: "proof", Error: ErrUnsupportedProof.Error()})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepVerify {
		return ErrSessionClosed
	}
	c.proof = &p
	c.proofType = contentType
	return nil
}

func (c *Checkout) Acknowledge(ack bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acknowledged = ack
}

// Discard drops everything collected so far.
func (c *Checkout) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
	c.step = StepDetails
	c.userID = ""
}

func (c *Checkout) clear() {
	c.senderName = ""
	c.transactionRef = ""
	c.proof = nil
	c.proofType = ""
	c.acknowledged = false
}

type submission struct {
	userID         string
	senderName     string
	transactionRef string
	proof          *Proof
	proofType      string
	acknowledged   bool
}

// begin claims the single submission slot and snapshots the form.
func (c *Checkout) begin() (submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.submitting:
		return submission{}, ErrSubmitInProgress
	case c.step == StepVerify:
		return submission{}, ErrSessionClosed
	case c.step != StepPayment:
		return submission{}, ErrStepOrder
	}
	c.submitting = true
	return submission{
		userID:         c.userID,
		senderName:     c.senderName,
		transactionRef: c.transactionRef,
		proof:          c.proof,
		proofType:      c.proofType,
		acknowledged:   c.acknowledged,
	}, nil
}

func (c *Checkout) end() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

func (s submission) validate() error {
	var fields []core.FieldError
	cause := ErrValidationFailed

	if !ValidTransactionRef(s.transactionRef) {
		fields = append(fields, core.FieldError{Field: "transaction_id", Error: errTransactionRefForm.Error()})
	}
	switch {
	case s.proof == nil:
		fields = append(fields, core.FieldError{Field: "proof", Error: errProofMissing.Error()})
	case s.proof.size() > MaxProofSize:
		cause = ErrFileTooLarge
		fields = append(fields, core.FieldError{Field: "proof", Error: ErrFileTooLarge.Error()})
	}
	if !s.acknowledged {
		fields = append(fields, core.FieldError{Field: "acknowledged", Error: errNotAcknowledged.Error()})
	}

	if len(fields) > 0 {
		return core.NewValidationError(cause, fields...)
	}
	return nil
}

// Submit validates the form locally, uploads the proof and files exactly one payment request.
// Validation failures never reach the network. On any failure the checkout stays at the payment
// step with its form intact; on success it moves to verify and forgets the form.
func (c *Checkout) Submit(ctx context.Context) (PaymentRequest, error) {
	sub, err := c.begin()
	if err != nil {
		return PaymentRequest{}, err
	}
	defer c.end()

	if err := sub.validate(); err != nil {
		return PaymentRequest{}, err
	}

	usr, err := c.currentUser(ctx)
	if err != nil {
		return PaymentRequest{}, err
	}

	key := proofKey(usr.ID, sub.proofType, sub.proof.Name)
	url, err := c.deps.Storage.Upload(ctx, key, sub.proofType, sub.proof.Data)
	if err != nil {
		return PaymentRequest{}, errors.Wrap(err, "uploading payment proof")
	}

	pr, err := c.deps.Ledger.Create(ctx, NewPaymentRequest{
		UserID:         usr.ID,
		CourseID:       c.courseID,
		Amount:         c.amount,
		TransactionRef: sub.transactionRef,
		SenderName:     sub.senderName,
		ProofURL:       url,
	})
	if err != nil {
		// the ledger never references the object; do not leave it behind
		if delErr := c.deps.Storage.Delete(context.Background(), key); delErr != nil {
			c.deps.Logger.Warn(errors.Wrapf(delErr, "deleting orphaned proof %s", key).Error())
		}
		return PaymentRequest{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
	c.userID = usr.ID
	c.request = &pr
	c.step = StepVerify
	return pr, nil
}

var proofExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// proofKey names the stored proof: receipts/<userID>_<unix millis>_<random>.<ext>
func proofKey(userID, contentType, filename string) string {
	ext, ok := proofExtensions[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(filename))
	}
	millis := NowFunc().UTC().UnixNano() / 1e6
	return fmt.Sprintf("receipts/%s_%d_%s%s", userID, millis, uuid.New().String()[:8], ext)
}
