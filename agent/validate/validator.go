// Package validate accepts or rejects a decoded model output and applies the
// contract's post-processing: disclaimer suffix, escalation screening and the
// hotline notice.
package validate

import (
	"fmt"
	"strings"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

type Validator struct {
	contract      contractx.Contract
	screen        RiskScreen
	hotlineNotice string
}

type Option func(*Validator)

func WithRiskScreen(screen RiskScreen) Option {
	return func(v *Validator) {
		if screen != nil {
			v.screen = screen
		}
	}
}

func WithHotlineNotice(notice string) Option {
	return func(v *Validator) {
		if n := strings.TrimSpace(notice); n != "" {
			v.hotlineNotice = n
		}
	}
}

func New(c contractx.Contract, opts ...Option) *Validator {
	v := &Validator{
		contract:      c,
		screen:        ScreenChatHistory,
		hotlineNotice: DefaultHotlineNotice,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns a post-processed copy of out, or a SchemaViolation failure. It is
// idempotent: validating an accepted output again returns it unchanged.
func (v *Validator) Validate(in contractx.Input, out contractx.Output) (contractx.Output, error) {
	if err := v.contract.Output.Check(out); err != nil {
		return nil, v.reject(err)
	}

	accepted := out.Clone()

	urgent := false
	if field := v.contract.EscalationField; field != "" {
		escalation, err := v.escalate(in, accepted[field])
		if err != nil {
			return nil, v.reject(err)
		}
		accepted[field] = string(escalation)
		urgent = escalation == contractx.EscalationUrgentHotline
	}

	if field := v.contract.MessageField; field != "" {
		msg, ok := accepted[field].(string)
		if !ok {
			return nil, v.reject(fmt.Errorf("%s is not a string", field))
		}
		accepted[field] = v.finishMessage(msg, urgent)
	}

	return accepted, nil
}

// escalate takes the model's level and raises it to whatever the local screen
// finds in the student's own words. It never lowers it.
func (v *Validator) escalate(in contractx.Input, raw any) (contractx.Escalation, error) {
	s, _ := raw.(string)
	model := contractx.Escalation(s)
	if !model.Valid() {
		return "", fmt.Errorf("escalation %q is not one of none, recommend_counsellor, urgent_hotline", s)
	}
	history, _ := in["chatHistory"].(string)
	return contractx.MostSevere(model, v.screen(history)), nil
}

// finishMessage leaves a message that already ends with the disclaimer untouched
// unless the hotline notice still has to go in ahead of it.
func (v *Validator) finishMessage(msg string, urgent bool) string {
	disclaimer := v.contract.Disclaimer
	needsNotice := urgent && !strings.Contains(msg, v.hotlineNotice)
	if !needsNotice && (disclaimer == "" || strings.HasSuffix(msg, disclaimer)) {
		return msg
	}

	body := strings.TrimSpace(msg)
	if disclaimer != "" {
		body = strings.TrimSpace(strings.TrimSuffix(body, disclaimer))
	}

	if needsNotice {
		body = joinHTML(body, v.hotlineNotice)
	}
	if disclaimer != "" {
		body = joinHTML(body, disclaimer)
	}
	return body
}

func joinHTML(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

func (v *Validator) reject(err error) *contractx.Failure {
	return &contractx.Failure{
		Kind:    contractx.KindSchemaViolation,
		UseCase: v.contract.UseCase,
		Err:     err,
	}
}
