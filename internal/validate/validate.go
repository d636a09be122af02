// Package validate evaluates declarative business rules against data points.
// Rules flag violations; they never mutate the points they inspect.
package validate

import (
	"context"
	"fmt"
	"regexp"

	"findex/internal/logging"
	"findex/internal/models"
	"findex/internal/store"
)

// Rule kinds.
const (
	KindRange          = "range"
	KindFormat         = "format"
	KindCrossReference = "cross_reference"
)

// Validator evaluates validation rules and gates the approval transition.
type Validator struct {
	store  *store.DataPointStore
	logger logging.Logger
}

// NewValidator builds a validator over the given store.
func NewValidator(st *store.DataPointStore, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Validator{store: st, logger: logger}
}

// ValidatePoint evaluates every applicable rule against one data point.
// Cross-reference rules need the rest of the project, so the caller's
// project snapshot is passed in rather than re-queried per point.
func (v *Validator) ValidatePoint(dp *models.DataPoint, rules []*models.ValidationRule, project []*models.DataPoint) []models.Violation {
	var out []models.Violation
	for _, r := range rules {
		if r.Type != "" && r.Type != dp.Type {
			continue
		}
		if r.ProjectID != "" && r.ProjectID != dp.ProjectID {
			continue
		}
		if viol := v.evaluate(dp, r, project); viol != nil {
			out = append(out, *viol)
		}
	}
	return out
}

// ValidateProject runs every rule over every live point in a project and
// appends project-level checks. Mixed currencies across the project is a
// warning, not an error, since aggregation refuses to sum across them.
func (v *Validator) ValidateProject(ctx context.Context, projectID string) ([]models.Violation, []string, error) {
	points, err := v.store.QueryByProject(ctx, projectID, store.QueryFilter{})
	if err != nil {
		return nil, nil, err
	}

	var violations []models.Violation
	ruleCache := make(map[models.DataPointType][]*models.ValidationRule)
	for _, dp := range points {
		rules, ok := ruleCache[dp.Type]
		if !ok {
			rules, err = v.store.ListValidationRules(ctx, projectID, dp.Type)
			if err != nil {
				return nil, nil, err
			}
			ruleCache[dp.Type] = rules
		}
		violations = append(violations, v.ValidatePoint(dp, rules, points)...)
	}

	var warnings []string
	if cur := currencies(points); len(cur) > 1 {
		warnings = append(warnings, fmt.Sprintf("project uses %d currencies: %v", len(cur), cur))
	}

	v.logger.Info("project validated",
		logging.Field{Key: logging.FieldProject, Value: projectID},
		logging.Field{Key: logging.FieldCount, Value: len(points)},
		logging.Field{Key: "violations", Value: len(violations)})
	return violations, warnings, nil
}

// Approve moves a data point to approved status. Points in an unresolved
// conflict or with error-severity violations cannot be approved.
func (v *Validator) Approve(ctx context.Context, id string) error {
	dp, err := v.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if dp.Superseded() {
		return fmt.Errorf("data point %s is superseded and cannot be approved", id)
	}
	if dp.Status == models.StatusConflicted {
		return fmt.Errorf("data point %s is in an unresolved conflict", id)
	}

	rules, err := v.store.ListValidationRules(ctx, dp.ProjectID, dp.Type)
	if err != nil {
		return err
	}
	project, err := v.store.QueryByProject(ctx, dp.ProjectID, store.QueryFilter{})
	if err != nil {
		return err
	}
	for _, viol := range v.ValidatePoint(dp, rules, project) {
		if viol.Severity == models.SeverityError {
			return &pipelineViolation{viol}
		}
	}
	return v.store.SetStatus(ctx, id, models.StatusApproved)
}

type pipelineViolation struct {
	v models.Violation
}

func (e *pipelineViolation) Error() string {
	return fmt.Sprintf("validation rule %s blocks approval of %s: %s", e.v.RuleID, e.v.DataPointID, e.v.Message)
}

func (v *Validator) evaluate(dp *models.DataPoint, r *models.ValidationRule, project []*models.DataPoint) *models.Violation {
	switch r.Kind {
	case KindRange:
		return v.evalRange(dp, r)
	case KindFormat:
		return v.evalFormat(dp, r)
	case KindCrossReference:
		return v.evalCrossReference(dp, r, project)
	default:
		v.logger.Warn("skipping rule with unknown kind",
			logging.Field{Key: "rule", Value: r.ID},
			logging.Field{Key: "kind", Value: r.Kind})
		return nil
	}
}

func (v *Validator) evalRange(dp *models.DataPoint, r *models.ValidationRule) *models.Violation {
	if r.Field != "amount" {
		return nil
	}
	amount, _ := dp.Amount.Amount.Float64()
	if r.Min != nil && amount < *r.Min {
		return violation(dp, r)
	}
	if r.Max != nil && amount > *r.Max {
		return violation(dp, r)
	}
	return nil
}

func (v *Validator) evalFormat(dp *models.DataPoint, r *models.ValidationRule) *models.Violation {
	value := fieldValue(dp, r.Field)
	if value == "" {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		v.logger.WithError(err).Warn("skipping rule with invalid pattern",
			logging.Field{Key: "rule", Value: r.ID})
		return nil
	}
	if !re.MatchString(value) {
		return violation(dp, r)
	}
	return nil
}

// evalCrossReference checks that the field's value appears on some other
// live data point in the project, e.g. a payment's invoice number matching
// an actual invoice.
func (v *Validator) evalCrossReference(dp *models.DataPoint, r *models.ValidationRule, project []*models.DataPoint) *models.Violation {
	value := fieldValue(dp, r.Field)
	if value == "" {
		return nil
	}
	for _, other := range project {
		if other.ID == dp.ID {
			continue
		}
		if fieldValue(other, r.Field) == value {
			return nil
		}
	}
	return violation(dp, r)
}

func violation(dp *models.DataPoint, r *models.ValidationRule) *models.Violation {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("%s rule failed on field %s", r.Kind, r.Field)
	}
	return &models.Violation{
		RuleID:      r.ID,
		DataPointID: dp.ID,
		Severity:    r.Severity,
		Message:     msg,
	}
}

func fieldValue(dp *models.DataPoint, field string) string {
	switch field {
	case "description":
		return dp.Description
	case "vendor":
		return dp.Vendor
	case "invoice_no":
		return dp.InvoiceNo
	case "po_number":
		return dp.PONumber
	case "cost_code":
		return dp.CostCode
	case "gl_account":
		return dp.GLAccount
	case "amount":
		return dp.Amount.Amount.String()
	case "currency":
		return dp.Amount.Currency
	case "category":
		return string(dp.Category)
	default:
		return ""
	}
}

func currencies(points []*models.DataPoint) []string {
	seen := make(map[string]bool)
	var out []string
	for _, dp := range points {
		if dp.Amount.Currency == "" || seen[dp.Amount.Currency] {
			continue
		}
		seen[dp.Amount.Currency] = true
		out = append(out, dp.Amount.Currency)
	}
	return out
}
