// Package proactivity sends reminders derived from stored facts at fixed
// times of day.
package proactivity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/models"
	"gopkg.in/yaml.v3"
)

// Rule types understood by Engine.
const (
	RuleTaxDeadline = "tax_deadline"
	RuleAppointment = "appointment"
)

// Priorities attached to reminders.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

const (
	defaultDaysBefore  = 7
	defaultHoursBefore = 24
	highPriorityDays   = 3
)

// Rule checks one fact and produces a reminder when it falls due.
type Rule struct {
	Type        string   `yaml:"type"`
	CheckFact   string   `yaml:"check_fact"`
	DaysBefore  *int     `yaml:"days_before,omitempty"`
	HoursBefore *float64 `yaml:"hours_before,omitempty"`
	Message     string   `yaml:"message"`
}

// Rules is the proactivity config file: rules per time window.
type Rules struct {
	Reminders map[string][]Rule `yaml:"reminders"`
}

// Reminder is a message due for delivery.
type Reminder struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// DefaultRules returns the rules used when no config file is present.
func DefaultRules() *Rules {
	days := defaultDaysBefore
	hours := float64(defaultHoursBefore)
	return &Rules{Reminders: map[string][]Rule{
		WindowMorning: {{
			Type:       RuleTaxDeadline,
			CheckFact:  "naechste_steuer_frist",
			DaysBefore: &days,
			Message:    "⚠️ Erinnerung: Steuer-Frist in {days} Tagen",
		}},
		WindowEvening: {{
			Type:        RuleAppointment,
			CheckFact:   "naechster_termin",
			HoursBefore: &hours,
			Message:     "📅 Morgen: {appointment_name} um {time}",
		}},
	}}
}

// LoadRules reads the YAML rules at path. A missing or empty file yields the
// defaults. A file that cannot be parsed yields the defaults and the error.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[PROACTIVITY] Config file not found: %s, using defaults", path)
		return DefaultRules(), nil
	}
	if err != nil {
		return DefaultRules(), fmt.Errorf("failed to read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return DefaultRules(), fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(rules.Reminders) == 0 {
		return DefaultRules(), nil
	}
	return &rules, nil
}

// FactReader looks up fact values; toolserver.Client and toolserver.Local implement it.
type FactReader interface {
	GetFact(ctx context.Context, key string) (string, error)
}

// Engine evaluates rules against the fact store.
type Engine struct {
	Rules       *Rules
	Facts       FactReader
	FactTimeout time.Duration
	Now         func() time.Time
	Logger      *log.Logger
}

// NewEngine creates an engine reading facts from facts.
func NewEngine(rules *Rules, facts FactReader) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{
		Rules:       rules,
		Facts:       facts,
		FactTimeout: 5 * time.Second,
		Now:         time.Now,
		Logger:      log.Default(),
	}
}

// DueReminders returns the reminders of window that are due now, in rule order.
// Rules that cannot be evaluated are logged and skipped.
func (e *Engine) DueReminders(ctx context.Context, window string) []Reminder {
	reminders := []Reminder{}
	for _, rule := range e.Rules.Reminders[window] {
		reminder, err := e.check(ctx, rule)
		if err != nil {
			e.logf("[PROACTIVITY] Error checking rule %s: %v", rule.Type, err)
			continue
		}
		if reminder != nil {
			reminders = append(reminders, *reminder)
		}
	}
	return reminders
}

func (e *Engine) check(ctx context.Context, rule Rule) (*Reminder, error) {
	switch rule.Type {
	case RuleTaxDeadline:
		return e.checkTaxDeadline(ctx, rule)
	case RuleAppointment:
		return e.checkAppointment(ctx, rule)
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
}

func (e *Engine) checkTaxDeadline(ctx context.Context, rule Rule) (*Reminder, error) {
	value, ok := e.fact(ctx, rule.CheckFact, "naechste_steuer_frist")
	if !ok {
		return nil, nil
	}
	now := e.now()
	deadline, err := parseLocalTime(value, now.Location())
	if err != nil {
		return nil, fmt.Errorf("parsing tax deadline: %w", err)
	}

	daysBefore := defaultDaysBefore
	if rule.DaysBefore != nil {
		daysBefore = *rule.DaysBefore
	}
	// Whole days, rounded down, so a deadline earlier today is already past.
	days := int(math.Floor(deadline.Sub(now).Hours() / 24))
	if days < 0 || days > daysBefore {
		return nil, nil
	}

	message := rule.Message
	if message == "" {
		message = "Steuer-Frist bald fällig"
	}
	priority := PriorityNormal
	if days <= highPriorityDays {
		priority = PriorityHigh
	}
	return &Reminder{
		Type:     RuleTaxDeadline,
		Message:  strings.ReplaceAll(message, "{days}", strconv.Itoa(days)),
		Priority: priority,
	}, nil
}

func (e *Engine) checkAppointment(ctx context.Context, rule Rule) (*Reminder, error) {
	value, ok := e.fact(ctx, rule.CheckFact, "naechster_termin")
	if !ok {
		return nil, nil
	}
	at, name, found := strings.Cut(value, "|")
	if !found {
		return nil, nil
	}
	now := e.now()
	when, err := parseLocalTime(strings.TrimSpace(at), now.Location())
	if err != nil {
		return nil, fmt.Errorf("parsing appointment: %w", err)
	}

	hoursBefore := float64(defaultHoursBefore)
	if rule.HoursBefore != nil {
		hoursBefore = *rule.HoursBefore
	}
	hours := when.Sub(now).Hours()
	if hours < 0 || hours > hoursBefore {
		return nil, nil
	}

	message := rule.Message
	if message == "" {
		message = "Termin steht an"
	}
	message = strings.NewReplacer(
		"{appointment_name}", strings.TrimSpace(name),
		"{time}", when.Format("15:04"),
	).Replace(message)
	return &Reminder{Type: RuleAppointment, Message: message, Priority: PriorityNormal}, nil
}

// fact returns the value of key, or of fallback when key is empty. Missing
// facts and lookup failures both report false.
func (e *Engine) fact(ctx context.Context, key, fallback string) (string, bool) {
	if key == "" {
		key = fallback
	}
	if e.Facts == nil {
		return "", false
	}
	if e.FactTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.FactTimeout)
		defer cancel()
	}
	value, err := e.Facts.GetFact(ctx, key)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "", false
	case err != nil:
		e.logf("[PROACTIVITY] Error fetching fact %s: %v", key, err)
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// parseLocalTime accepts ISO dates and date-times. Values without a zone are
// read in loc.
func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO date %q", value)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logf(format string, args ...interface{}) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
