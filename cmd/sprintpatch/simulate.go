package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/pboyd/sprintpatch"
)

var (
	simulateBase     string
	simulateStrategy string
	simulateCallback string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Install the hook into a fake module and print the result",
	Long: `Builds a sparse fake module for the first layout, installs the hook with
the chosen strategy and prints the code at the hook site and at the bridge.
It then feeds a button release through the handler and shows the player's
sprint flag being cleared.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ls, err := loadLayouts()
		if err != nil {
			return err
		}
		if len(ls) == 0 {
			return fmt.Errorf("no layouts")
		}
		base, err := parseAddress(simulateBase)
		if err != nil {
			return err
		}
		callback, err := parseAddress(simulateCallback)
		if err != nil {
			return err
		}

		sim, err := newSimulation(ls[0], base)
		if err != nil {
			return err
		}
		return sim.run(cmd.OutOrStdout(), simulateStrategy, callback, newLogger(cmd))
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateBase, "base", "0x140000000", "Module base address")
	simulateCmd.Flags().StringVar(&simulateStrategy, "strategy", "cave", "Bridge strategy: cave or pool")
	simulateCmd.Flags().StringVar(&simulateCallback, "callback", "0x7ffe12340000", "Address of the injected callback")
}

const (
	simWindow    = 64
	simPoolSize  = 4096
	simPlayerLen = 0x1100
	simEventLen  = 0x50

	// How far below the base the fake player and button event live.
	simPlayerDelta = 0x100000
	simEventDelta  = 0x80000
)

// simulation is a fake host process: a few windows of the module image plus
// the player object, a button event and room for a trampoline pool.
type simulation struct {
	layout sprintpatch.HostLayout
	base   sprintpatch.Address
	space  sprintpatch.Space
	player sprintpatch.Address
	event  sprintpatch.Address
	pool   *sprintpatch.Region
}

func newSimulation(layout sprintpatch.HostLayout, base sprintpatch.Address) (*simulation, error) {
	if base < simPlayerDelta {
		return nil, fmt.Errorf("base %v is too low", base)
	}

	sim := &simulation{
		layout: layout,
		base:   base,
		player: base - simPlayerDelta,
		event:  base - simEventDelta,
	}

	hook := sprintpatch.NewRegion(layout.HookSite(base)-simWindow/2, simWindow, sprintpatch.ProtReadExec)
	fill(hook.Bytes(), 0x90)
	copy(hook.Bytes()[simWindow/2:], layout.HookBytes)
	sim.space = append(sim.space, hook)

	if layout.CodeCave != 0 {
		cave := sprintpatch.NewRegion(layout.Cave(base), simWindow, sprintpatch.ProtReadExec)
		fill(cave.Bytes(), 0xcc)
		sim.space = append(sim.space, cave)
	}

	slot := sprintpatch.NewRegion(layout.PlayerSlot(base), 8, sprintpatch.ProtReadWrite)
	binary.LittleEndian.PutUint64(slot.Bytes(), uint64(sim.player))
	sim.space = append(sim.space, slot)

	player := sprintpatch.NewRegion(sim.player, simPlayerLen, sprintpatch.ProtReadWrite)
	player.Bytes()[0x10e4] = sprintpatch.FlagSprinting
	sim.space = append(sim.space, player)

	event := sprintpatch.NewRegion(sim.event, simEventLen, sprintpatch.ProtReadWrite)
	binary.LittleEndian.PutUint32(event.Bytes()[0x4c:], math.Float32bits(1.5))
	sim.space = append(sim.space, event)

	sim.pool = sprintpatch.NewRegion(base-2*simPoolSize, simPoolSize, sprintpatch.ProtReadExec)
	fill(sim.pool.Bytes(), 0xcc)
	sim.space = append(sim.space, sim.pool)

	return sim, nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func (sim *simulation) ModuleVersion(string) (sprintpatch.Version, error) {
	return sim.layout.Version, nil
}

func (sim *simulation) ModuleBase(string) (sprintpatch.Address, error) {
	return sim.base, nil
}

func (sim *simulation) run(w io.Writer, strategy string, callback sprintpatch.Address, log *slog.Logger) error {
	opts := sprintpatch.AttachOptions{
		Module:  sim.layout.Module,
		Layouts: sprintpatch.Layouts{sim.layout},
		Host:    sim,
		Memory:  sim.space,
		Callback: func(*sprintpatch.SprintHandler) (sprintpatch.Address, error) {
			return callback, nil
		},
		Log: log,
	}

	switch strategy {
	case "cave":
	case "pool":
		opts.NewPool = func(sprintpatch.Address) (sprintpatch.Pool, error) {
			return sprintpatch.NewSpanPool(sim.pool.Base(), simPoolSize), nil
		}
	default:
		return fmt.Errorf("unknown strategy %q, want cave or pool", strategy)
	}

	a, err := sprintpatch.Attach(opts)
	if err != nil {
		return err
	}

	hook := a.Site.Hook
	if err := sim.list(w, "hook site", hook, sprintpatch.BranchSize); err != nil {
		return err
	}

	op, target, err := sprintpatch.FollowBranch(sim.space, hook)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %v -> %v\n", op, hook, target)

	if target != callback {
		size := sprintpatch.StubSize(sprintpatch.CaveStub(0, 0))
		if strategy == "pool" {
			size = sprintpatch.StubSize(sprintpatch.AbsoluteJumpStub(0))
		}
		if err := sim.list(w, "bridge", target, size); err != nil {
			return err
		}
	}

	before := sim.flags()
	down := a.Handler.IsDown(sim.event)
	fmt.Fprintf(w, "\nrelease event: down=%v flags 0x%02x -> 0x%02x\n", down, before, sim.flags())
	return nil
}

func (sim *simulation) list(w io.Writer, title string, addr sprintpatch.Address, size int) error {
	listing, err := sprintpatch.Disassemble(sim.space, addr, size)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s:\n%s", title, listing)
	return nil
}

func (sim *simulation) flags() byte {
	var b [1]byte
	sim.space.Read(sim.player+0x10e4, b[:])
	return b[0]
}
