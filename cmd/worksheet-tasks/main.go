// Command worksheet-tasks applies editor ordering operations to a task list
// kept in a YAML file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"eproba-editor/domain"
)

var errProblemsFound = errors.New("task list is not settled")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	write bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "worksheet-tasks",
		Short:        "Reorder worksheet tasks stored in YAML",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&a.write, "write", "w", false, "write the result back to the task file instead of printing it")
	root.AddCommand(
		a.showCmd(),
		a.reorderCmd(),
		a.moveCmd(),
		a.transferCmd(),
		a.stepCmd(),
		a.replayCmd(),
		a.checkCmd(),
	)
	return root
}

// run loads the task file, applies op and writes or prints the settled list.
func (a *app) run(cmd *cobra.Command, path string, op func([]domain.Task) ([]domain.Task, error)) error {
	tasks, err := loadTasks(path)
	if err != nil {
		return err
	}
	next, err := op(tasks)
	if err != nil {
		return err
	}
	if domain.Equal(tasks, next) {
		fmt.Fprintln(cmd.ErrOrStderr(), "no change")
	}
	if a.write {
		return saveTasks(path, next)
	}
	data, err := encodeTasks(next)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func parseCategoryArg(s string) (domain.Category, error) {
	c, ok := domain.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q (want %s)", s, categoryNames())
	}
	return c, nil
}

func categoryNames() string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, " | ")
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print tasks grouped by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := loadTasks(args[0])
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
}

func printTasks(w io.Writer, tasks []domain.Task) {
	for _, c := range domain.Categories {
		fmt.Fprintln(w, c)
		for _, t := range domain.InCategory(tasks, c) {
			name := t.Name
			if strings.TrimSpace(name) == "" {
				name = "(blank)"
			}
			fmt.Fprintf(w, "  %2d  %s  %s\n", t.Order, t.ID, name)
		}
	}
}

func (a *app) reorderCmd() *cobra.Command {
	var edge string
	cmd := &cobra.Command{
		Use:   "reorder <file> <source-id> <target-id>",
		Short: "Place a task next to another task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], func(tasks []domain.Task) ([]domain.Task, error) {
				return domain.Reorder(tasks, args[1], args[2], domain.ParseEdge(edge)), nil
			})
		},
	}
	cmd.Flags().StringVar(&edge, "edge", "", "side of the target to insert on: top or bottom")
	return cmd
}

func (a *app) moveCmd() *cobra.Command {
	var target, edge string
	cmd := &cobra.Command{
		Use:   "move <file> <source-id> <category>",
		Short: "Move a task into another category",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := parseCategoryArg(args[2])
			if err != nil {
				return err
			}
			return a.run(cmd, args[0], func(tasks []domain.Task) ([]domain.Task, error) {
				return domain.MoveBetweenCategories(tasks, args[1], dest, target, domain.ParseEdge(edge)), nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "task in the destination to insert next to; appends when empty")
	cmd.Flags().StringVar(&edge, "edge", "", "side of the target to insert on: top or bottom")
	return cmd
}

func (a *app) transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <file> <from-category> <to-category>",
		Short: "Move every task of one category to the end of another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseCategoryArg(args[1])
			if err != nil {
				return err
			}
			to, err := parseCategoryArg(args[2])
			if err != nil {
				return err
			}
			return a.run(cmd, args[0], func(tasks []domain.Task) ([]domain.Task, error) {
				return domain.TransferAll(tasks, from, to), nil
			})
		},
	}
}

func (a *app) stepCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "step <file> <up|down|category> <task-id>",
		Short: "Apply a single button move",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := domain.Step{Action: domain.StepAction(args[1]), TaskID: args[2]}
			switch s.Action {
			case domain.StepUp, domain.StepDown:
			case domain.StepCategory:
				c, err := parseCategoryArg(category)
				if err != nil {
					return err
				}
				s.Category = c
			default:
				return fmt.Errorf("unknown action %q", args[1])
			}
			return a.run(cmd, args[0], func(tasks []domain.Task) ([]domain.Task, error) {
				return domain.ApplyStep(tasks, s), nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "destination for the category action")
	return cmd
}

func (a *app) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file> <events.yaml>",
		Short: "Feed recorded drop events through a drag monitor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadDropEvents(args[1])
			if err != nil {
				return err
			}
			return a.run(cmd, args[0], func(tasks []domain.Task) ([]domain.Task, error) {
				store := domain.NewTaskStore(tasks)
				monitor := domain.NewDragMonitor()
				release := store.WatchDrops(monitor)
				defer release()
				for _, ev := range events {
					monitor.Publish(ev)
				}
				return store.Tasks(), nil
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report ids, categories and orders that break the settled layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := loadTasks(args[0])
			if err != nil {
				return err
			}
			found := problems(tasks)
			for _, p := range found {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(found) > 0 {
				return errProblemsFound
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tasks\n", len(tasks))
			return nil
		},
	}
}
