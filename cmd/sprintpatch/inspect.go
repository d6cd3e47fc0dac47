package main

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/spf13/cobra"

	"github.com/pboyd/sprintpatch"
)

var inspectVersion string

var inspectCmd = &cobra.Command{
	Use:   "inspect <host executable>",
	Short: "Check a host executable against its layout",
	Long: `Maps the executable read-only and checks that the hook site and code cave
of its layout fall in executable sections, that the hook site holds the
expected bytes and that the cave is unused padding.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ls, err := loadLayouts()
		if err != nil {
			return err
		}

		layout, err := pickLayout(ls, filepath.Base(args[0]), inspectVersion)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		image, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			return fmt.Errorf("map %s: %w", args[0], err)
		}
		defer image.Unmap()

		return inspect(cmd.OutOrStdout(), image, layout)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectVersion, "version", "", "Host version to check against (default: the only layout for the module)")
}

func pickLayout(ls sprintpatch.Layouts, module, version string) (sprintpatch.HostLayout, error) {
	if version != "" {
		v, err := sprintpatch.ParseVersion(version)
		if err != nil {
			return sprintpatch.HostLayout{}, err
		}
		return ls.Lookup(module, v)
	}

	var found []sprintpatch.HostLayout
	for _, l := range ls {
		if strings.EqualFold(l.Module, module) {
			found = append(found, l)
		}
	}
	switch len(found) {
	case 0:
		return sprintpatch.HostLayout{}, fmt.Errorf("%w: no layouts for %s", sprintpatch.ErrUnsupportedVersion, module)
	case 1:
		return found[0], nil
	}
	return sprintpatch.HostLayout{}, fmt.Errorf("%d layouts for %s, pick one with --version", len(found), module)
}

// inspect loads the executable sections of image as fake memory at the
// preferred image base and dry-runs the cave plan against it.
func inspect(w io.Writer, image []byte, layout sprintpatch.HostLayout) error {
	file, err := pe.NewFile(bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("parse PE: %w", err)
	}
	defer file.Close()

	oh, ok := file.OptionalHeader.(*pe.OptionalHeader64)
	if !ok {
		return errors.New("not a 64-bit PE image")
	}
	base := sprintpatch.Address(oh.ImageBase)

	var space sprintpatch.Space
	for _, s := range file.Sections {
		if s.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE == 0 {
			continue
		}
		end := uint64(s.Offset) + uint64(s.Size)
		if end > uint64(len(image)) {
			return fmt.Errorf("section %s extends past end of file", s.Name)
		}
		space = append(space, sprintpatch.NewRegionFrom(base+sprintpatch.Address(s.VirtualAddress), image[s.Offset:end], sprintpatch.ProtReadExec))
		fmt.Fprintf(w, "section %-8s %v-%v\n", s.Name, base+sprintpatch.Address(s.VirtualAddress), base+sprintpatch.Address(s.VirtualAddress)+sprintpatch.Address(s.Size))
	}

	hook := layout.HookSite(base)
	listing, err := sprintpatch.Disassemble(space, hook, 16)
	if err != nil && listing == "" {
		return fmt.Errorf("hook site %v: %w", hook, err)
	}
	fmt.Fprintf(w, "\nhook site %v (%s %v):\n%s", hook, layout.Module, layout.Version, listing)

	var problems []error
	if len(layout.HookBytes) > 0 {
		actual := make([]byte, len(layout.HookBytes))
		if err := space.Read(hook, actual); err != nil || !bytes.Equal(actual, layout.HookBytes) {
			problems = append(problems, fmt.Errorf("%w: want % x", sprintpatch.ErrUnexpectedCode, []byte(layout.HookBytes)))
		}
	}

	if layout.CodeCave != 0 {
		cave := sprintpatch.ManualCodeCave{Cave: layout.Cave(base)}
		// Any callback will do; only the cave and the hook branch are checked.
		site := sprintpatch.HookSite{Hook: hook, Callback: base}
		if _, err := cave.Plan(space, site); err != nil {
			problems = append(problems, err)
		} else {
			fmt.Fprintf(w, "\ncode cave %v is free\n", cave.Cave)
		}
	}

	if err := errors.Join(problems...); err != nil {
		return err
	}
	fmt.Fprintln(w, "ok")
	return nil
}
