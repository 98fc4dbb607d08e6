package modinfo

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Modinfo holds the metadata a kernel module carries in its .modinfo
// ELF section.
type Modinfo struct {
	SrcVersion    string
	Retpoline     string
	Vermagic      string
	Depends       string
	Name          string
	Author        string
	Description   string
	License       string
	KernelRelease string
}

// FromModulePath reads the .modinfo section of the kernel module at the
// given path.
func FromModulePath(modulePath string) (*Modinfo, error) {
	f, err := elf.Open(modulePath)
	if err != nil {
		return nil, fmt.Errorf("error decoding modinfo: %w", err)
	}
	defer f.Close()

	section := f.Section(".modinfo")
	if section == nil {
		return nil, fmt.Errorf("error decoding modinfo: section .modinfo not found")
	}

	data, err := section.Data()
	if err != nil {
		return nil, fmt.Errorf("error decoding modinfo: %w", err)
	}

	return Parse(data)
}

// Parse decodes the NUL separated KEY=VALUE stream of a .modinfo section.
//
// The kernel release is the first vermagic token.
func Parse(data []byte) (*Modinfo, error) {
	res := strMap(strings.Split(string(data), "\x00"), strings.TrimSpace)

	vermagic, ok := res["vermagic"]
	if !ok {
		return nil, fmt.Errorf("error decoding modinfo: vermagic not found in .modinfo")
	}

	release, _, _ := strings.Cut(vermagic, " ")
	if release == "" {
		return nil, fmt.Errorf("error decoding modinfo: kernel release not found in vermagic")
	}
	res["kernelrelease"] = release

	var info Modinfo
	if err := mapstructure.Decode(res, &info); err != nil {
		return nil, fmt.Errorf("error decoding modinfo: %w", err)
	}
	return &info, nil
}

func strMap(vs []string, f func(string) string) map[string]string {
	m := map[string]string{}
	for _, v := range vs {
		key, val, found := strings.Cut(v, "=")
		if !found {
			continue
		}
		m[key] = f(val)
	}
	return m
}
