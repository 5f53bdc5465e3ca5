// Package scenario holds the virtual user profiles that drive a load test:
// what each simulated client requests, how often, and how long it waits in
// between.
package scenario

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrUnknownProfile = errors.New("unknown profile")
)

// WaitTime is the think-time range between two tasks of a user.
type WaitTime struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Between returns a WaitTime spanning [min, max].
func Between(min, max time.Duration) WaitTime {
	return WaitTime{Min: min, Max: max}
}

// Next draws a uniformly distributed duration from the range.
func (w WaitTime) Next() time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	return w.Min + time.Duration(rand.Int63n(int64(w.Max-w.Min)+1))
}

// Task is a weighted unit of work. When several requests are listed one of
// them is chosen uniformly each time the task runs.
type Task struct {
	Weight   int               `yaml:"weight"`
	Requests []RequestTemplate `yaml:"requests"`
}

// Profile is a virtual user behaviour bundle.
type Profile struct {
	Name string `yaml:"name"`

	// Weight is the profile's share of spawned users when several profiles
	// run together. Zero counts as 1.
	Weight int `yaml:"weight,omitempty"`

	Wait WaitTime `yaml:"wait"`

	// Username is rendered once per user when it starts.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	Lists   map[string][]string `yaml:"lists,omitempty"`
	OnStart []RequestTemplate   `yaml:"on_start,omitempty"`
	Tasks   []Task              `yaml:"tasks"`
}

// SpawnWeight returns the effective user weight.
func (p *Profile) SpawnWeight() int {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}

// Validate checks the profile and parses all of its templates with engine.
func (p *Profile) Validate(engine *TemplateEngine) error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("%w: %s has no tasks", ErrInvalidProfile, p.Name)
	}
	if p.Weight < 0 {
		return fmt.Errorf("%w: %s has negative weight", ErrInvalidProfile, p.Name)
	}
	if p.Wait.Min < 0 || p.Wait.Max < p.Wait.Min {
		return fmt.Errorf("%w: %s wait range %s-%s", ErrInvalidProfile, p.Name, p.Wait.Min, p.Wait.Max)
	}
	if _, err := engine.Parse(p.Username); err != nil {
		return fmt.Errorf("%w: %s username: %v", ErrInvalidProfile, p.Name, err)
	}

	for i := range p.OnStart {
		if err := validateTemplate(engine, &p.OnStart[i]); err != nil {
			return fmt.Errorf("%w: %s on_start[%d]: %v", ErrInvalidProfile, p.Name, i, err)
		}
	}
	for i, t := range p.Tasks {
		if t.Weight <= 0 {
			return fmt.Errorf("%w: %s task %d weight must be positive", ErrInvalidProfile, p.Name, i)
		}
		if len(t.Requests) == 0 {
			return fmt.Errorf("%w: %s task %d has no requests", ErrInvalidProfile, p.Name, i)
		}
		for j := range t.Requests {
			if err := validateTemplate(engine, &t.Requests[j]); err != nil {
				return fmt.Errorf("%w: %s task %d: %v", ErrInvalidProfile, p.Name, i, err)
			}
		}
	}
	return nil
}

func validateTemplate(engine *TemplateEngine, t *RequestTemplate) error {
	if t.Method == "" {
		return errors.New("missing method")
	}
	if t.Path == "" {
		return errors.New("missing path")
	}
	texts := []string{t.Path}
	for _, v := range t.Headers {
		texts = append(texts, v)
	}
	for _, v := range t.Body {
		texts = append(texts, v)
	}
	for _, text := range texts {
		if _, err := engine.Parse(text); err != nil {
			return err
		}
	}
	return nil
}

// Session is the per user state carried between requests.
type Session struct {
	Username string
	Password string
	Token    string
	Vars     map[string]string
}

// Authenticated reports whether a token has been captured.
func (s *Session) Authenticated() bool {
	return s.Token != ""
}
