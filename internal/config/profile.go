package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/monitor"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
)

// Profile is the operator-editable YAML file declaring the classification
// policy and the hardware power profile. Every section is optional; omitted
// values keep the built-in defaults.
type Profile struct {
	Policy   policySection   `yaml:"policy"`
	Hardware hardwareSection `yaml:"hardware"`
}

type policySection struct {
	// Canonical maps content class names (image, executable, document,
	// archive, script) to their native extensions.
	Canonical map[string][]string `yaml:"canonical"`

	Trusted []string `yaml:"trusted_extensions"`

	ScriptMinBytes map[string]int64 `yaml:"script_min_bytes"`
}

type hardwareSection struct {
	CPUTDPWatts      float64            `yaml:"cpu_tdp_watts"`
	IdleRatio        float64            `yaml:"idle_ratio"`
	BaseWatts        float64            `yaml:"base_watts"`
	Disks            monitor.DiskCounts `yaml:"disks"`
	HDDWatts         float64            `yaml:"hdd_watts"`
	SSDWatts         float64            `yaml:"ssd_watts"`
	NVMeWatts        float64            `yaml:"nvme_watts"`
	MemorySticks     int                `yaml:"memory_sticks"`
	MemoryStickWatts float64            `yaml:"memory_stick_watts"`
}

// LoadProfile reads the profile file and overlays it on the built-in
// defaults. An empty path returns the defaults unchanged.
func LoadProfile(path string) (classify.Policy, monitor.PowerModel, error) {
	policy := classify.DefaultPolicy()
	power := monitor.DefaultPowerModel()

	if path == "" {
		return policy, power, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, power, fmt.Errorf("profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return policy, power, fmt.Errorf("profile %s: %w", path, err)
	}

	if err := p.Policy.overlay(&policy); err != nil {
		return policy, power, fmt.Errorf("profile %s: %w", path, err)
	}
	p.Hardware.overlay(&power)

	if err := policy.Validate(); err != nil {
		return policy, power, fmt.Errorf("profile %s: %w", path, err)
	}
	return policy, power, nil
}

func (s policySection) overlay(policy *classify.Policy) error {
	for className, exts := range s.Canonical {
		class, ok := sniff.ParseClass(className)
		if !ok {
			return fmt.Errorf("unknown content class %q in policy.canonical", className)
		}
		set := make(map[string]bool, len(exts))
		for _, ext := range exts {
			set[normalizeYAMLExt(ext)] = true
		}
		policy.Canonical[class] = set
	}

	if len(s.Trusted) > 0 {
		set := make(map[string]bool, len(s.Trusted))
		for _, ext := range s.Trusted {
			set[normalizeYAMLExt(ext)] = true
		}
		policy.Trusted = set
	}

	for ext, min := range s.ScriptMinBytes {
		policy.ScriptMinBytes[normalizeYAMLExt(ext)] = min
	}
	return nil
}

func (s hardwareSection) overlay(power *monitor.PowerModel) {
	if s.CPUTDPWatts > 0 {
		power.CPUTDPWatts = s.CPUTDPWatts
	}
	if s.IdleRatio > 0 {
		power.IdleRatio = s.IdleRatio
	}
	if s.BaseWatts > 0 {
		power.BaseWatts = s.BaseWatts
	}
	if s.Disks != (monitor.DiskCounts{}) {
		power.Disks = s.Disks
	}
	if s.HDDWatts > 0 {
		power.HDDWatts = s.HDDWatts
	}
	if s.SSDWatts > 0 {
		power.SSDWatts = s.SSDWatts
	}
	if s.NVMeWatts > 0 {
		power.NVMeWatts = s.NVMeWatts
	}
	if s.MemorySticks > 0 {
		power.MemorySticks = s.MemorySticks
	}
	if s.MemoryStickWatts > 0 {
		power.MemoryStickWatts = s.MemoryStickWatts
	}
}

func normalizeYAMLExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
