package cases

import "fmt"

// PromptKind identifies the last distinct prompt the bot sent on a case. The
// next user message is read as an answer to it.
type PromptKind uint8

const (
	PromptNone PromptKind = iota
	PromptGreeting
	PromptClarifyFirst
	PromptClarify
	PromptClarifyAlt
	PromptClarifyFallback
	PromptAskDuration
	PromptAskSeverity
	PromptCollectMore
)

var promptNames = [...]string{
	PromptNone:            "none",
	PromptGreeting:        "greet_pushy",
	PromptClarifyFirst:    "clarify_1",
	PromptClarify:         "clarify_2",
	PromptClarifyAlt:      "clarify_2b",
	PromptClarifyFallback: "clarify_format",
	PromptAskDuration:     "ask_duration",
	PromptAskSeverity:     "ask_severity",
	PromptCollectMore:     "collect_more",
}

// String returns the stable name used in persisted records.
func (k PromptKind) String() string {
	if int(k) < len(promptNames) {
		return promptNames[k]
	}
	return fmt.Sprintf("PromptKind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k PromptKind) MarshalText() ([]byte, error) {
	if int(k) >= len(promptNames) {
		return nil, fmt.Errorf("unknown prompt kind %d", uint8(k))
	}
	return []byte(promptNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PromptKind) UnmarshalText(b []byte) error {
	kind, err := ParsePromptKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParsePromptKind returns the kind with the given name. The empty string is PromptNone.
func ParsePromptKind(name string) (PromptKind, error) {
	if name == "" {
		return PromptNone, nil
	}
	for i, n := range promptNames {
		if n == name {
			return PromptKind(i), nil
		}
	}
	return PromptNone, fmt.Errorf("unknown prompt kind %q", name)
}
