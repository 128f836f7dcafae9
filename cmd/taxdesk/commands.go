package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gartstein/taxdesk/internal/taxdesk/controller"
	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"github.com/gartstein/taxdesk/internal/taxdesk/events"
	"github.com/gartstein/taxdesk/internal/taxdesk/locale"
	"github.com/gartstein/taxdesk/internal/taxdesk/models"
	"github.com/gartstein/taxdesk/internal/taxdesk/report"
	"github.com/gartstein/taxdesk/internal/taxdesk/summary"
	"github.com/gartstein/taxdesk/internal/taxdesk/views"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "config.yaml"
	defaultFeedGroup  = "taxdesk-feed"
)

func newRootCmd() *cobra.Command {
	a := &app{clock: controller.SystemClock}

	root := &cobra.Command{
		Use:           "taxdesk",
		Short:         "Track companies under tax and zakat review",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultConfigPath, "path to the YAML configuration file")

	root.AddCommand(
		listCmd(a),
		todayCmd(a),
		showCmd(a),
		addCmd(a),
		editCmd(a),
		noteCmd(a),
		contactCmd(a),
		taskCmd(a),
		summaryCmd(a),
		reportCmd(a),
		feedCmd(a),
	)
	return root
}

func listCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List companies, optionally filtered by name or number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tNUMBER\tSTATUS\tLAST ACTION")
				for _, c := range views.FilterCompanies(s.Companies(), search) {
					last := "-"
					if entry, ok := views.LastAction(c); ok {
						last = entry.Details
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.UniqueNumber, c.Status.Label(), last)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive substring of the name or unique number")
	return cmd
}

func todayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List open tasks due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				due := views.TasksDueToday(s.Tasks(), models.DateOf(a.clock.Now()))
				if len(due) == 0 {
					fmt.Fprintln(a.out, "No tasks due today.")
					return nil
				}
				printTasks(a, due)
				return nil
			})
		},
	}
}

func printTasks(a *app, tasks []models.Task) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tDESCRIPTION\tDUE\tDONE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", t.ID, t.CompanyName, t.Description, locale.FormatDate(t.DueDate), t.IsCompleted)
	}
	_ = w.Flush()
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a company with its notes and action log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				c, err := s.Company(args[0])
				if err != nil {
					return err
				}
				printCompany(a, c)
				return nil
			})
		},
	}
}

func printCompany(a *app, c models.Company) {
	fmt.Fprintf(a.out, "ID:       %s\n", c.ID)
	fmt.Fprintf(a.out, "Name:     %s\n", c.Name)
	fmt.Fprintf(a.out, "Number:   %s\n", c.UniqueNumber)
	fmt.Fprintf(a.out, "Created:  %s\n", locale.FormatDate(c.CreationDate))
	fmt.Fprintf(a.out, "Status:   %s\n", c.Status.Label())
	if c.Notes != "" {
		fmt.Fprintf(a.out, "Notes:\n  %s\n", strings.ReplaceAll(c.Notes, "\n", "\n  "))
	}
	fmt.Fprintln(a.out, "Log:")
	for _, entry := range c.ActionLog {
		fmt.Fprintf(a.out, "  %s  %s  %s\n", locale.FormatTimestamp(entry.Timestamp, a.location()), entry.Type.Label(), entry.Details)
	}
}

func addCmd(a *app) *cobra.Command {
	var in models.NewCompany
	var status string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Open a new company file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				parsed, err := parseStatus(status)
				if err != nil {
					return err
				}
				in.Status = parsed
			}
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				c, err := s.CreateCompany(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, c.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "company name")
	cmd.Flags().StringVar(&in.UniqueNumber, "number", "", "unique reference number")
	cmd.Flags().StringVar(&status, "status", "", "initial status code or label")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "initial notes")
	return cmd
}

func parseStatus(raw string) (models.CompanyStatus, error) {
	s, err := models.ParseCompanyStatus(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return s, nil
}

func editCmd(a *app) *cobra.Command {
	var name, number, status, notes string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.CompanyUpdate{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("number") {
				update.UniqueNumber = &number
			}
			if flags.Changed("notes") {
				update.Notes = &notes
			}
			if flags.Changed("status") {
				parsed, err := parseStatus(status)
				if err != nil {
					return err
				}
				update.Status = &parsed
			}
			if update.Empty() {
				return fmt.Errorf("%w: nothing to edit", e.ErrInvalidInput)
			}
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				c, err := s.UpdateCompany(cmd.Context(), update)
				if err != nil {
					return err
				}
				printCompany(a, c)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new company name")
	cmd.Flags().StringVar(&number, "number", "", "new unique reference number")
	cmd.Flags().StringVar(&status, "status", "", "new status code or label")
	cmd.Flags().StringVar(&notes, "notes", "", "replacement notes")
	return cmd
}

func noteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note ID TEXT...",
		Short: "Append a note to a company",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				c, err := s.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				printCompany(a, c)
				return nil
			})
		},
	}
}

func contactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "contact ID",
		Short: "Record a contact and schedule a follow-up task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				_, task, err := s.RecordContact(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printTasks(a, []models.Task{task})
				return nil
			})
		},
	}
}

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage follow-up tasks",
	}
	cmd.AddCommand(taskAddCmd(a), taskDoneCmd(a), taskListCmd(a))
	return cmd
}

func taskListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				printTasks(a, s.Tasks())
				return nil
			})
		},
	}
}

func taskAddCmd(a *app) *cobra.Command {
	var description, due string
	cmd := &cobra.Command{
		Use:   "add COMPANY_ID",
		Short: "Add a task for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.NewTask{CompanyID: args[0], Description: description}
			if due != "" {
				d, err := models.ParseDate(due)
				if err != nil {
					return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
				}
				in.DueDate = d
			}
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				task, err := s.AddTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				printTasks(a, []models.Task{task})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what needs to be done")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func taskDoneCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done TASK_ID",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *controller.Store) error {
				task, err := s.SetTaskCompleted(cmd.Context(), args[0], !undo)
				if err != nil {
					return err
				}
				printTasks(a, []models.Task{task})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "reopen the task instead")
	return cmd
}

// summaryCmd holds one guard per process; since each process runs a single
// command, it only matters for callers that execute the tree repeatedly.
func summaryCmd(a *app) *cobra.Command {
	guard := summary.NewGuard()
	return &cobra.Command{
		Use:   "summary ID",
		Short: "Summarize a company's action log with the AI assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			summarizer, err := a.summarizer(ctx)
			if err != nil {
				return err
			}
			return a.withStore(ctx, func(s *controller.Store) error {
				c, err := s.Company(args[0])
				if err != nil {
					return err
				}
				release, ok := guard.Begin(c.ID)
				if !ok {
					return fmt.Errorf("%w: a summary for %s is already in progress", e.ErrInvalidInput, c.ID)
				}
				defer release()

				ctx, cancel := context.WithTimeout(ctx, a.cfg.AITimeout)
				defer cancel()
				fmt.Fprintln(a.out, summarizer.Summarize(ctx, c.Name, c.ActionLog))
				return nil
			})
		},
	}
}

func reportCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the company list as a PDF report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			exporter, err := a.exporter(ctx)
			if err != nil {
				a.logger.Error("Failed to prepare report sink", zap.Error(err))
				return errors.New(report.FailureMessage)
			}
			return a.withStore(ctx, func(s *controller.Store) error {
				location, err := exporter.Export(ctx, views.FilterCompanies(s.Companies(), search))
				if err != nil {
					return errors.New(report.FailureMessage)
				}
				fmt.Fprintln(a.out, location)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "export only matching companies")
	return cmd
}

func feedCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print action-log events from the change feed until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("%w: KAFKA_BROKERS is not configured", e.ErrInvalidInput)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := events.NewConsumer(a.cfg.KafkaBrokers, group, a.cfg.Topic, a.logger)
			defer consumer.Close()
			consumer.RegisterHandler(func(_ context.Context, ev events.Event) error {
				_, err := fmt.Fprintf(a.out, "%s  %s  %s  %s\n",
					locale.FormatTimestamp(ev.Entry.Timestamp, a.location()), ev.CompanyID, ev.Type.Label(), ev.Entry.Details)
				return err
			})
			return consumer.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&group, "group", defaultFeedGroup, "consumer group id")
	return cmd
}
