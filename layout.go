package sprintpatch

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Offset is a distance from the host module's base address. In layout files
// it is written in hex.
type Offset uint64

func (o Offset) String() string {
	return "0x" + strings.ToUpper(strconv.FormatUint(uint64(o), 16))
}

func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	n, err := strconv.ParseUint(node.Value, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid offset %q", node.Line, node.Value)
	}
	*o = Offset(n)
	return nil
}

func (o Offset) MarshalYAML() (any, error) {
	return o.String(), nil
}

// HexBytes is a byte string written as hex pairs, e.g. "48 89 5c 24 08".
type HexBytes []byte

func (h HexBytes) String() string {
	return fmt.Sprintf("% x", []byte(h))
}

func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	b, err := hex.DecodeString(strings.Join(strings.Fields(node.Value), ""))
	if err != nil {
		return fmt.Errorf("line %d: invalid hex bytes: %w", node.Line, err)
	}
	*h = b
	return nil
}

func (h HexBytes) MarshalYAML() (any, error) {
	return h.String(), nil
}

// HostLayout records where things are in one build of the host executable.
// None of these offsets can be derived; they come from reverse engineering a
// specific build.
type HostLayout struct {
	Module  string  `yaml:"module"`
	Version Version `yaml:"version"`

	// ProcessButton is the sprint handler's ProcessButton function.
	ProcessButton Offset `yaml:"process_button"`
	// HookDelta is the distance from ProcessButton to the IsDown check
	// that gets replaced.
	HookDelta Offset `yaml:"hook_delta"`
	// CodeCave is a run of padding between functions large enough for
	// the cave stub.
	CodeCave Offset `yaml:"code_cave"`
	// PlayerSingleton holds the pointer to the player character.
	PlayerSingleton Offset `yaml:"player_singleton"`

	HookBytes       HexBytes `yaml:"hook_bytes,omitempty"`
	LegacyArtifacts []string `yaml:"legacy_artifacts,omitempty"`
}

// HookSite returns the address of the hook window for a module at base.
func (l HostLayout) HookSite(base Address) Address {
	return base + Address(l.ProcessButton+l.HookDelta)
}

// Cave returns the address of the code cave for a module at base.
func (l HostLayout) Cave(base Address) Address {
	return base + Address(l.CodeCave)
}

// PlayerSlot returns the address of the player singleton for a module at
// base.
func (l HostLayout) PlayerSlot(base Address) Address {
	return base + Address(l.PlayerSingleton)
}

// Validate reports every missing or overlapping field.
func (l HostLayout) Validate() error {
	var errs []error
	if l.Module == "" {
		errs = append(errs, errors.New("module is required"))
	}
	if l.Version == (Version{}) {
		errs = append(errs, errors.New("version is required"))
	}
	if l.ProcessButton == 0 {
		errs = append(errs, errors.New("process_button is required"))
	}
	if l.PlayerSingleton == 0 {
		errs = append(errs, errors.New("player_singleton is required"))
	}

	if l.CodeCave != 0 {
		hook := l.ProcessButton + l.HookDelta
		cave := l.CodeCave
		caveEnd := cave + Offset(StubSize(CaveStub(0, 0)))
		if hook < caveEnd && cave < hook+BranchSize*2 {
			errs = append(errs, fmt.Errorf("code_cave %v overlaps the hook site %v", cave, hook))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("layout %s %v: %w", l.Module, l.Version, err)
	}
	return nil
}

// Layouts is the set of supported host builds.
type Layouts []HostLayout

// DefaultLayouts returns the builds supported out of the box.
func DefaultLayouts() Layouts {
	return Layouts{
		{
			Module:          "Starfield.exe",
			Version:         Version{1, 7, 23, 0},
			ProcessButton:   0x1F48B30,
			HookDelta:       0xC,
			CodeCave:        0xF9C22B,
			PlayerSingleton: 0x5594D28,
			LegacyArtifacts: []string{"ClassicSprintingStarfield.asi"},
		},
	}
}

// Lookup returns the layout for exactly this module and version.
func (ls Layouts) Lookup(module string, v Version) (HostLayout, error) {
	var supported []string
	for _, l := range ls {
		if !strings.EqualFold(l.Module, module) {
			continue
		}
		if l.Version == v {
			return l, nil
		}
		supported = append(supported, l.Version.String())
	}

	if len(supported) == 0 {
		return HostLayout{}, fmt.Errorf("%w: no layouts for %s", ErrUnsupportedVersion, module)
	}
	return HostLayout{}, fmt.Errorf("%w: %s %v (supported: %s)", ErrUnsupportedVersion, module, v, strings.Join(supported, ", "))
}

type layoutFile struct {
	Layouts Layouts `yaml:"layouts"`
}

// LoadLayouts reads a YAML document of the form
//
//	layouts:
//	  - module: Starfield.exe
//	    version: 1.7.23.0
//	    process_button: 0x1F48B30
//	    hook_delta: 0xC
//	    code_cave: 0xF9C22B
//	    player_singleton: 0x5594D28
func LoadLayouts(r io.Reader) (Layouts, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f layoutFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty layout file")
		}
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	var errs []error
	for _, l := range f.Layouts {
		if err := l.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Layouts, nil
}

// WriteLayouts writes ls in the format LoadLayouts reads.
func WriteLayouts(w io.Writer, ls Layouts) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(layoutFile{Layouts: ls}); err != nil {
		return err
	}
	return enc.Close()
}
