// Package wizard drives multi-step forms: one mutable draft, a step index,
// per-step validation on the way forward, and a typed payload on submit.
package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAtStart      = errors.New("wizard: already at the first step")
	ErrAtEnd        = errors.New("wizard: already at the last step")
	ErrNotTerminal  = errors.New("wizard: submit is only allowed on the last step")
	ErrUnknownField = errors.New("wizard: unknown field")
	ErrUnknownFlow  = errors.New("wizard: unknown flow")
)

type Kind int

const (
	String Kind = iota
	Number
	Bool
	Date
	List
)

type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// Step is one screen. Check runs cross-field rules for the screen after the
// field-level rules pass.
type Step struct {
	Name           string
	Fields         []Field
	MinAttachments int
	Check          func(v Values) ValidationErrors
}

// Draft holds raw field input exactly as entered.
type Draft map[string]string

// ValidationErrors maps field name to message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Wizard struct {
	flow        string
	steps       []Step
	fields      map[string]Field
	draft       Draft
	attachments []string
	idx         int
}

func New(flow string, steps ...Step) *Wizard {
	w := &Wizard{flow: flow, steps: steps, fields: map[string]Field{}, draft: Draft{}}
	for _, s := range steps {
		for _, f := range s.Fields {
			w.fields[f.Name] = f
		}
	}
	return w
}

func (w *Wizard) Flow() string  { return w.flow }
func (w *Wizard) Index() int    { return w.idx }
func (w *Wizard) Step() Step    { return w.steps[w.idx] }
func (w *Wizard) Steps() []Step { return w.steps }

// Terminal reports whether the current step is the last one.
func (w *Wizard) Terminal() bool { return w.idx == len(w.steps)-1 }

// Set records raw input for a field on any step.
func (w *Wizard) Set(name, value string) error {
	if _, ok := w.fields[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	w.draft[name] = value
	return nil
}

func (w *Wizard) SetAll(in map[string]string) error {
	for k, v := range in {
		if err := w.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wizard) Get(name string) string { return w.draft[name] }

// Draft returns a copy of the raw input.
func (w *Wizard) Draft() Draft {
	out := make(Draft, len(w.draft))
	for k, v := range w.draft {
		out[k] = v
	}
	return out
}

// Attach adds client-local image references, uploaded only on submit.
func (w *Wizard) Attach(refs ...string) { w.attachments = append(w.attachments, refs...) }

func (w *Wizard) Attachments() []string { return append([]string(nil), w.attachments...) }

// Next validates the current step and advances.
func (w *Wizard) Next() error {
	if w.Terminal() {
		return ErrAtEnd
	}
	if err := w.validate(w.steps[w.idx]); err != nil {
		return err
	}
	w.idx++
	return nil
}

// Back moves to the previous step. The draft is left untouched.
func (w *Wizard) Back() error {
	if w.idx == 0 {
		return ErrAtStart
	}
	w.idx--
	return nil
}

// Submit validates every step and returns the coerced payload.
func (w *Wizard) Submit() (Values, error) {
	if !w.Terminal() {
		return nil, ErrNotTerminal
	}
	for _, s := range w.steps {
		if err := w.validate(s); err != nil {
			return nil, err
		}
	}
	return w.Values(), nil
}

// Values coerces whatever is currently entered, skipping unparsable input.
func (w *Wizard) Values() Values {
	out := Values{}
	for name, raw := range w.draft {
		f := w.fields[name]
		if v, err := coerce(f.Kind, raw); err == nil && v != nil {
			out[name] = v
		}
	}
	return out
}

// StepValues coerces only the fields of the named step.
func (w *Wizard) StepValues(step string) Values {
	all := w.Values()
	out := Values{}
	for _, s := range w.steps {
		if s.Name != step {
			continue
		}
		for _, f := range s.Fields {
			if v, ok := all[f.Name]; ok {
				out[f.Name] = v
			}
		}
	}
	return out
}

func (w *Wizard) validate(s Step) error {
	errs := ValidationErrors{}
	for _, f := range s.Fields {
		raw := strings.TrimSpace(w.draft[f.Name])
		if raw == "" {
			if f.Required {
				errs[f.Name] = "is required"
			}
			continue
		}
		if _, err := coerce(f.Kind, raw); err != nil {
			errs[f.Name] = err.Error()
		}
	}
	if s.MinAttachments > 0 && len(w.attachments) < s.MinAttachments {
		errs["attachments"] = fmt.Sprintf("at least %d required", s.MinAttachments)
	}
	if len(errs) == 0 && s.Check != nil {
		for k, v := range s.Check(w.Values()) {
			errs[k] = v
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// State is the serializable form of a wizard kept between requests.
type State struct {
	Flow        string   `json:"flow"`
	Step        int      `json:"step"`
	Draft       Draft    `json:"draft"`
	Attachments []string `json:"attachments,omitempty"`
}

func (w *Wizard) Snapshot() State {
	return State{Flow: w.flow, Step: w.idx, Draft: w.Draft(), Attachments: w.Attachments()}
}

// Restore rebuilds a wizard of a registered flow from st.
func Restore(st State) (*Wizard, error) {
	mk, ok := flows[st.Flow]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, st.Flow)
	}
	w := mk()
	for k, v := range st.Draft {
		if _, ok := w.fields[k]; ok {
			w.draft[k] = v
		}
	}
	w.attachments = append([]string(nil), st.Attachments...)
	if st.Step >= 0 && st.Step < len(w.steps) {
		w.idx = st.Step
	}
	return w, nil
}
