package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/plan"
)

// editPlan loads path (or starts empty when create is set and it is missing),
// applies fn and writes the result back.
func (a *app) editPlan(path string, create bool, fn func(e *plan.Editor) error) error {
	var p *schemas.Plan
	if _, err := os.Stat(path); err == nil {
		if p, err = plan.Load(path, a.logger); err != nil {
			return err
		}
	} else if !create || !errors.Is(err, os.ErrNotExist) {
		return err
	}
	ed := plan.NewEditor(p, nil)
	if err := fn(ed); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ed.Export(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func atois(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}

func newPlanCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "plan",
		Short: "Author plan files from the command line",
	}

	newCmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			return a.editPlan(args[0], true, func(*plan.Editor) error { return nil })
		},
	}

	addBox := &cobra.Command{
		Use:   "add-box <file> <x> <y> <width> <height>",
		Short: "Append a box; its id is the next index",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := atois(args[1:])
			if err != nil {
				return err
			}
			return a.editPlan(args[0], true, func(e *plan.Editor) error {
				b, err := e.AddBox(n[0], n[1], n[2], n[3])
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "box %d at (%d, %d) %dx%d\n", b.ID, b.X, b.Y, b.Width, b.Height)
				}
				return err
			})
		},
	}

	deleteBox := &cobra.Command{
		Use:   "delete-box <file> <id>",
		Short: "Delete a box, drop its actions and renumber the rest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := atois(args[1:])
			if err != nil {
				return err
			}
			return a.editPlan(args[0], false, func(e *plan.Editor) error { return e.DeleteBox(n[0]) })
		},
	}

	var (
		box     int
		text    string
		amount  int
		seconds float64
		button  string
	)
	add := &cobra.Command{
		Use:   "add <file> <CLICK|MOVE|TYPE|SCROLL|WAIT|WAKE>",
		Short: "Append an action; consecutive clicks on different boxes get a generated move",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act := schemas.Action{Type: schemas.ActionType(strings.ToUpper(args[1])), Params: map[string]any{}}
			if cmd.Flags().Changed("box") {
				act.BoxID = schemas.BoxRef(box)
			}
			switch act.Type {
			case schemas.ActionText:
				act.Params["text"] = text
			case schemas.ActionScroll:
				act.Params["amount"] = amount
			case schemas.ActionWait:
				act.Params["seconds"] = seconds
			case schemas.ActionClick:
				if button != "" {
					act.Params["button"] = strings.ToUpper(button)
				}
			}
			return a.editPlan(args[0], false, func(e *plan.Editor) error {
				inserted, err := e.Append(act)
				if inserted {
					fmt.Fprintln(cmd.OutOrStdout(), "inserted a generated MOVE between the two clicks")
				}
				return err
			})
		},
	}
	add.Flags().IntVar(&box, "box", 0, "box id for CLICK and MOVE")
	add.Flags().StringVar(&text, "text", "", "text for TYPE ({ENTER} presses Enter)")
	add.Flags().IntVar(&amount, "amount", 0, "scroll amount for SCROLL")
	add.Flags().Float64Var(&seconds, "seconds", 0, "duration for WAIT")
	add.Flags().StringVar(&button, "button", "", "LEFT, RIGHT or MIDDLE for CLICK")

	remove := &cobra.Command{
		Use:   "remove <file> <index>",
		Short: "Remove the action at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := atois(args[1:])
			if err != nil {
				return err
			}
			return a.editPlan(args[0], false, func(e *plan.Editor) error { return e.Remove(n[0]) })
		},
	}

	show := &cobra.Command{
		Use:   "show <file>",
		Short: "Validate a plan and list its boxes and actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0], a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d boxes, %d actions\n", len(p.Boxes), len(p.Actions))
			for _, b := range p.Boxes {
				fmt.Fprintf(out, "box %d at (%d, %d) %dx%d\n", b.ID, b.X, b.Y, b.Width, b.Height)
			}
			for i, act := range p.Actions {
				ref := "-"
				if act.BoxID != nil {
					ref = strconv.Itoa(*act.BoxID)
				}
				gen := ""
				if act.Generated {
					gen = " (generated)"
				}
				fmt.Fprintf(out, "[%d] %s box=%s%s\n", i, act.Type, ref, gen)
			}
			return nil
		},
	}

	root.AddCommand(newCmd, addBox, deleteBox, add, remove, show)
	return root
}
