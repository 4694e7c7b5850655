package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks req without side effects and returns the snapshot of the
// cart it validated, if any.
func (o *Orchestrator) validate(req Request) (domain.CartSnapshot, error) {
	fields := make(map[string]string)
	var snap domain.CartSnapshot

	o.collect(fields, "", o.validator.Struct(req.Buyer))

	switch req.Submission.(type) {
	case InlineSubmission, HostedSubmission:
	case nil:
		fields["payment_method"] = "is required"
	default:
		fields["payment_method"] = "is not supported"
	}

	switch {
	case req.Cart != nil && req.Donation != nil:
		fields["cart"] = "cannot be combined with a donation"
	case req.Cart != nil:
		snap = req.Cart.Snapshot()
		if req.Buyer.Address == nil {
			fields["address"] = "is required"
		} else {
			o.collect(fields, "address.", o.validator.Struct(req.Buyer.Address))
		}
		switch {
		case len(snap.Items) == 0:
			fields["cart"] = "is empty"
		case snap.Subtotal < o.opts.MinOrderAmount:
			fields["cart"] = fmt.Sprintf("total must be at least %s", domain.FormatAmount(o.opts.MinOrderAmount))
		case snap.Subtotal > domain.MaxAmount:
			fields["cart"] = fmt.Sprintf("total must be at most %s", domain.FormatAmount(domain.MaxAmount))
		}
	case req.Donation != nil:
		d := req.Donation
		if d.Amount < o.opts.MinDonationAmount || d.Amount <= 0 {
			fields["amount"] = fmt.Sprintf("must be at least %s", domain.FormatAmount(max(o.opts.MinDonationAmount, 1)))
		}
		if d.Recurring {
			if d.Interval != domain.IntervalMonth && d.Interval != domain.IntervalYear {
				fields["interval"] = "must be month or year"
			}
			if _, ok := req.Submission.(HostedSubmission); req.Submission != nil && !ok {
				fields["payment_method"] = "recurring donations require hosted checkout"
			}
		}
		if req.Buyer.Address != nil {
			o.collect(fields, "address.", o.validator.Struct(req.Buyer.Address))
		}
	default:
		fields["cart"] = "is required"
	}

	if in, ok := req.Submission.(InlineSubmission); ok && in.Card.PaymentMethodID == "" {
		fields["card"] = "is required"
	}

	if len(fields) > 0 {
		return snap, &ValidationError{Fields: fields}
	}
	return snap, nil
}

func (o *Orchestrator) collect(fields map[string]string, prefix string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["request"] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[prefix+fe.Field()] = message(fe)
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}
