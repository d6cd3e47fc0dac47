package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pboyd/sprintpatch"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <jmp|call> <src> <dst>",
	Short: "Print the 5 byte relative branch from src to dst",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var op sprintpatch.Opcode
		switch args[0] {
		case "jmp":
			op = sprintpatch.OpJump
		case "call":
			op = sprintpatch.OpCall
		default:
			return fmt.Errorf("unknown branch %q, want jmp or call", args[0])
		}

		src, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		dst, err := parseAddress(args[2])
		if err != nil {
			return err
		}

		code, err := sprintpatch.EncodeBranch(op, src, dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "% x\n", code[:])
		return nil
	},
}
