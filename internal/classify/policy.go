package classify

import (
	"fmt"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
)

// DefaultScriptMinBytes is the size below which a script upload is suspect
// when the policy file gives no per-extension override.
const DefaultScriptMinBytes = 16

// DefaultPolicy returns the built-in classification tables. The config
// layer overlays the operator's policy file on top of these.
func DefaultPolicy() Policy {
	return Policy{
		Canonical: map[sniff.Class]map[string]bool{
			sniff.ClassExecutable: extSet(".exe", ".dll", ".scr", ".com", ".msi", ".bin", ".so", ".elf"),
			sniff.ClassImage:      extSet(".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"),
			sniff.ClassDocument:   extSet(".pdf"),
			sniff.ClassArchive:    extSet(".zip", ".docx", ".xlsx", ".pptx", ".jar", ".apk"),
			sniff.ClassScript:     extSet(".sh", ".py", ".bat", ".cmd", ".ps1", ".pl", ".rb", ".txt"),
		},
		Trusted: extSet(
			".jpg", ".jpeg", ".png", ".gif", ".bmp",
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt",
		),
		ScriptMinBytes: map[string]int64{
			".sh":  DefaultScriptMinBytes,
			".py":  DefaultScriptMinBytes,
			".bat": DefaultScriptMinBytes,
			".cmd": DefaultScriptMinBytes,
			".ps1": DefaultScriptMinBytes,
		},
	}
}

// Validate checks that the tables are internally usable. Called once at
// startup; a bad policy is a startup error, not a per-event one.
func (p Policy) Validate() error {
	if len(p.Canonical) == 0 {
		return fmt.Errorf("policy: canonical extension map is empty")
	}
	if len(p.Trusted) == 0 {
		return fmt.Errorf("policy: trusted extension set is empty")
	}
	for class, exts := range p.Canonical {
		if class == sniff.ClassUnknown {
			return fmt.Errorf("policy: canonical map may not key the unknown class")
		}
		if len(exts) == 0 {
			return fmt.Errorf("policy: canonical set for class %s is empty", class)
		}
	}
	for ext, min := range p.ScriptMinBytes {
		if min <= 0 {
			return fmt.Errorf("policy: script threshold for %s must be positive, got %d", ext, min)
		}
	}
	return nil
}

func extSet(exts ...string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[e] = true
	}
	return set
}
