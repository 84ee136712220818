package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"staybook/internal/domain"
	"staybook/internal/wizard"
)

// WizardView is what a client sees of a stored wizard.
type WizardView struct {
	ID          string       `json:"id"`
	Flow        string       `json:"flow"`
	Step        string       `json:"step"`
	Index       int          `json:"index"`
	Steps       int          `json:"steps"`
	Terminal    bool         `json:"terminal"`
	Draft       wizard.Draft `json:"draft"`
	Attachments []string     `json:"attachments,omitempty"`
}

// SubmitResult carries whatever the flow created.
type SubmitResult struct {
	Booking  *domain.Booking       `json:"booking,omitempty"`
	Property *domain.Property      `json:"property,omitempty"`
	Vendor   *domain.VendorProfile `json:"vendor,omitempty"`
}

type WizardService struct {
	drafts     wizard.DraftStore
	bookings   *BookingService
	properties *PropertyService
	vendors    *VendorService
	open       wizard.Opener
}

// NewWizardService: open resolves attachment references at submit time.
func NewWizardService(drafts wizard.DraftStore, b *BookingService, p *PropertyService, v *VendorService, open wizard.Opener) *WizardService {
	return &WizardService{drafts: drafts, bookings: b, properties: p, vendors: v, open: open}
}

func view(id string, w *wizard.Wizard) WizardView {
	return WizardView{
		ID:          id,
		Flow:        w.Flow(),
		Step:        w.Step().Name,
		Index:       w.Index(),
		Steps:       len(w.Steps()),
		Terminal:    w.Terminal(),
		Draft:       w.Draft(),
		Attachments: w.Attachments(),
	}
}

func (s *WizardService) Start(ctx context.Context, flow string, initial map[string]string) (WizardView, error) {
	w, err := wizard.Start(flow)
	if err != nil {
		return WizardView{}, err
	}
	if err := w.SetAll(initial); err != nil {
		return WizardView{}, err
	}
	id := uuid.NewString()
	if err := s.drafts.Save(ctx, id, w.Snapshot()); err != nil {
		return WizardView{}, err
	}
	return view(id, w), nil
}

func (s *WizardService) load(ctx context.Context, id string) (*wizard.Wizard, error) {
	st, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return wizard.Restore(st)
}

// mutate loads the wizard, applies fn and saves it back even when fn
// fails, so field edits survive a failed validation.
func (s *WizardService) mutate(ctx context.Context, id string, fn func(w *wizard.Wizard) error) (WizardView, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return WizardView{}, err
	}
	ferr := fn(w)
	if err := s.drafts.Save(ctx, id, w.Snapshot()); err != nil {
		return view(id, w), err
	}
	return view(id, w), ferr
}

func (s *WizardService) Get(ctx context.Context, id string) (WizardView, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return WizardView{}, err
	}
	return view(id, w), nil
}

func (s *WizardService) Set(ctx context.Context, id string, fields map[string]string) (WizardView, error) {
	return s.mutate(ctx, id, func(w *wizard.Wizard) error { return w.SetAll(fields) })
}

func (s *WizardService) Attach(ctx context.Context, id string, refs ...string) (WizardView, error) {
	return s.mutate(ctx, id, func(w *wizard.Wizard) error {
		w.Attach(refs...)
		return nil
	})
}

// Next applies fields and advances. Vendor onboarding saves the step
// upstream before moving on.
func (s *WizardService) Next(ctx context.Context, id string, fields map[string]string) (WizardView, error) {
	return s.mutate(ctx, id, func(w *wizard.Wizard) error {
		if err := w.SetAll(fields); err != nil {
			return err
		}
		step := w.Step().Name
		if err := w.Next(); err != nil {
			return err
		}
		if w.Flow() == wizard.FlowVendorOnboarding {
			if _, err := s.vendors.SaveStep(ctx, step, w.StepValues(step)); err != nil {
				_ = w.Back()
				return fmt.Errorf("save %s: %w", step, err)
			}
		}
		return nil
	})
}

func (s *WizardService) Back(ctx context.Context, id string) (WizardView, error) {
	return s.mutate(ctx, id, func(w *wizard.Wizard) error { return w.Back() })
}

// Submit sends the composed payload of a finished wizard and drops the
// draft on success.
func (s *WizardService) Submit(ctx context.Context, id string, progress wizard.Progress) (SubmitResult, error) {
	w, err := s.load(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	v, err := w.Submit()
	if err != nil {
		return SubmitResult{}, err
	}

	var res SubmitResult
	switch w.Flow() {
	case wizard.FlowBookingCheckout:
		req := wizard.ComposeBooking(v)
		// the draft id doubles as the idempotency key
		req.IdempotencyKey = id
		b, err := s.bookings.Create(ctx, req)
		if err != nil {
			return SubmitResult{}, err
		}
		res.Booking = &b
	case wizard.FlowVendorOnboarding:
		p, err := s.vendors.Submit(ctx)
		if err != nil {
			return SubmitResult{}, err
		}
		res.Vendor = &p
	case wizard.FlowPropertyEditor:
		p, err := s.properties.CreateWithImages(ctx, wizard.ComposeProperty(v), w.Attachments(), s.open, progress)
		if err != nil {
			return SubmitResult{}, err
		}
		res.Property = &p
	default:
		return SubmitResult{}, fmt.Errorf("%w: %s", wizard.ErrUnknownFlow, w.Flow())
	}

	if err := s.drafts.Delete(ctx, id); err != nil && !errors.Is(err, wizard.ErrDraftNotFound) {
		return res, err
	}
	return res, nil
}
