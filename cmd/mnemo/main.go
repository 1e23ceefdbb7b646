// Mnemo CLI - persistent memory for your personal agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mnemo-hq/mnemo/internal/actions"
	"github.com/mnemo-hq/mnemo/internal/config"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/export"
	"github.com/mnemo-hq/mnemo/internal/logging"
	"github.com/mnemo-hq/mnemo/internal/migrate"
	"github.com/mnemo-hq/mnemo/internal/scheduler"
	"github.com/mnemo-hq/mnemo/internal/store"
)

var (
	// Config
	dataDir string
	verbose bool

	// Version
	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mnemo",
		Short: "Mnemo - persistent memory for your personal agent",
		Long: `Mnemo keeps everything your agent knows in one append-only log:
who it is, who you are, how it behaves, what it has learned, and
what it still has to do.

Every fact is one JSON line. Nothing is ever rewritten in place.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logging.SetLevel(logging.DEBUG)
			} else {
				logging.SetLevel(logging.WARN)
			}
			logging.SetColor(term.IsTerminal(int(os.Stderr.Fd())))
		},
	}

	// Global flags
	home, _ := os.UserHomeDir()
	defaultDataDir := filepath.Join(home, ".mnemo")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir, "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	// Commands
	rootCmd.AddCommand(rememberCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(forgetCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open builds the dispatcher for the configured data directory.
func open() (*actions.Dispatcher, *config.Config, error) {
	cfg, err := config.Load(filepath.Join(dataDir, "config.json"))
	if err != nil {
		return nil, nil, err
	}
	cfg.DataDir = dataDir
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, err
	}
	s := store.New(cfg.LogPath(), time.Duration(cfg.LockTimeout))
	return actions.New(s), cfg, nil
}

// rememberCmd records facts: behaviors, identity, user facts,
// learnings, preferences, and project context.
func rememberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Record something worth keeping",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "behavior <category> <text>",
		Short: "Add a standing rule for how the agent acts",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			e, added, err := d.AddBehavior(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !added {
				fmt.Println("💭 Already known.")
				return nil
			}
			fmt.Printf("✅ Behavior recorded [%s] %s\n", e.Category, e.Text)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "identity <key> <value>",
		Short: "Set a fact about the agent itself",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			_, changed, err := d.SetIdentity(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("💭 Unchanged.")
				return nil
			}
			fmt.Printf("✅ Identity set: %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "user <key> <value>",
		Short: "Set a fact about the human",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			_, changed, err := d.SetUser(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("💭 Unchanged.")
				return nil
			}
			fmt.Printf("✅ User fact set: %s\n", args[0])
			return nil
		},
	})

	learning := &cobra.Command{
		Use:   "learning <text>",
		Short: "Record a lesson learned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("source")
			_, added, err := d.AddLearning(strings.Join(args, " "), source)
			if err != nil {
				return err
			}
			if !added {
				fmt.Println("💭 Already learned.")
				return nil
			}
			fmt.Println("✅ Learning recorded.")
			return nil
		},
	}
	learning.Flags().String("source", "", "where the lesson came from")
	cmd.AddCommand(learning)

	preference := &cobra.Command{
		Use:   "preference <text>",
		Short: "Record a stated preference",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			category, _ := cmd.Flags().GetString("category")
			_, added, err := d.AddPreference(strings.Join(args, " "), category)
			if err != nil {
				return err
			}
			if !added {
				fmt.Println("💭 Already known.")
				return nil
			}
			fmt.Println("✅ Preference recorded.")
			return nil
		},
	}
	preference.Flags().String("category", "general", "preference category")
	cmd.AddCommand(preference)

	contextCmd := &cobra.Command{
		Use:   "context <project> <path> <content>",
		Short: "Save working context for a project path",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			_, changed, err := d.SaveContext(args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("💭 Unchanged.")
				return nil
			}
			fmt.Printf("✅ Context saved for %s\n", args[1])
			return nil
		},
	}
	cmd.AddCommand(contextCmd)

	return cmd
}

// taskCmd manages the task list.
func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	add := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			priority, _ := cmd.Flags().GetString("priority")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			dueStr, _ := cmd.Flags().GetString("due")

			var due *time.Time
			if dueStr != "" {
				t, err := time.Parse("2006-01-02", dueStr)
				if err != nil {
					return fmt.Errorf("parse due date %q: %w", dueStr, err)
				}
				due = &t
			}

			t, err := d.AddTask(strings.Join(args, " "), core.TaskPriority(priority), tags, due)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Task added [%s] %s\n", t.Priority, t.Description)
			fmt.Printf("   id: %s\n", t.ID)
			return nil
		},
	}
	add.Flags().StringP("priority", "p", "normal", "priority (low, normal, high, urgent)")
	add.Flags().StringSlice("tag", nil, "tags")
	add.Flags().String("due", "", "due date (YYYY-MM-DD)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			t, err := d.CompleteTask(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("🎉 Done: %s\n", t.Description)
			return nil
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			tasks, err := d.ListTasks(!all)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("✨ Nothing to do.")
				return nil
			}
			fmt.Printf("📋 %d task(s)\n\n", len(tasks))
			for _, t := range tasks {
				mark := "○"
				if t.Status == core.TaskDone {
					mark = "✓"
				}
				fmt.Printf("  %s [%s] %s\n", mark, t.Priority, t.Description)
				line := fmt.Sprintf("      id: %s", t.ID)
				if t.Due != nil {
					line += fmt.Sprintf("  due: %s", t.Due.Format("2006-01-02"))
				}
				if len(t.Tags) > 0 {
					line += fmt.Sprintf("  tags: %s", strings.Join(t.Tags, ","))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	list.Flags().Bool("all", false, "include completed tasks")
	cmd.AddCommand(list)

	return cmd
}

// remindCmd schedules and lists reminders.
func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage reminders",
	}

	add := &cobra.Command{
		Use:   "add <description>",
		Short: "Schedule a reminder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			at, _ := cmd.Flags().GetString("at")
			in, _ := cmd.Flags().GetString("in")

			var fireAt time.Time
			switch {
			case in != "":
				dur, err := time.ParseDuration(in)
				if err != nil {
					return fmt.Errorf("parse duration %q: %w", in, err)
				}
				fireAt = time.Now().Add(dur)
			case at != "":
				t, err := time.ParseInLocation("2006-01-02 15:04", at, time.Local)
				if err != nil {
					return fmt.Errorf("parse time %q: %w", at, err)
				}
				fireAt = t
			default:
				return fmt.Errorf("either --at or --in is required")
			}

			r, err := d.AddReminder(strings.Join(args, " "), fireAt)
			if err != nil {
				return err
			}
			fmt.Printf("⏰ Reminder set for %s\n", r.FireAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	add.Flags().String("at", "", "fire time (YYYY-MM-DD HH:MM, local)")
	add.Flags().String("in", "", "fire after duration (e.g. 90m, 2h)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			b, err := d.Snapshot()
			if err != nil {
				return err
			}
			reminders := b.RemindersByTime()
			if len(reminders) == 0 {
				fmt.Println("✨ No reminders.")
				return nil
			}
			for _, r := range reminders {
				mark := "⏰"
				if r.Fired {
					mark = "✓"
				}
				fmt.Printf("  %s %s  %s\n", mark, r.FireAt.Local().Format("2006-01-02 15:04"), r.Description)
				fmt.Printf("      id: %s\n", r.ID)
			}
			return nil
		},
	})

	return cmd
}

// forgetCmd tombstones an entry.
func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Remove an entry from the materialized view",
		Long: `Appends a tombstone for the entry with the given id. The original
line stays in the log forever; it just stops contributing to what
the agent knows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			if err := d.RemoveEntry(args[0]); err != nil {
				return err
			}
			fmt.Printf("🪦 Forgotten: %s\n", args[0])
			return nil
		},
	}
}

// promptCmd renders the system-prompt block.
func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Render memory as a system-prompt block",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			b, err := d.Snapshot()
			if err != nil {
				return err
			}
			fmt.Print(b.BuildPrompt(time.Now()))
			return nil
		},
	}
}

// statusCmd summarizes the store.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show memory status",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := open()
			if err != nil {
				return err
			}
			report, err := d.Status()
			if err != nil {
				return err
			}

			fmt.Println("🧠 Mnemo Status")
			fmt.Println()
			fmt.Printf("   Log: %s\n", report.LogPath)
			fmt.Printf("   Entries: %d", report.Entries)
			if report.SkippedLines > 0 {
				fmt.Printf(" (%d unreadable lines skipped)", report.SkippedLines)
			}
			fmt.Println()
			fmt.Println()
			fmt.Printf("   Behaviors:   %d\n", report.Counts.Behaviors)
			fmt.Printf("   Identity:    %d\n", report.Counts.Identity)
			fmt.Printf("   User facts:  %d\n", report.Counts.User)
			fmt.Printf("   Learnings:   %d\n", report.Counts.Learnings)
			fmt.Printf("   Preferences: %d\n", report.Counts.Preferences)
			fmt.Printf("   Contexts:    %d\n", report.Counts.Contexts)
			fmt.Printf("   Tasks:       %d\n", report.Counts.Tasks)
			fmt.Printf("   Reminders:   %d\n", report.Counts.Reminders)
			fmt.Println()
			if report.Migrated {
				fmt.Println("   Migration: done")
			} else {
				fmt.Println("   Migration: not run (use 'mnemo migrate' if you have legacy logs)")
			}
			return nil
		},
	}
}

// migrateCmd absorbs the legacy per-concern logs.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Absorb legacy per-concern logs into the unified log",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := open()
			if err != nil {
				return err
			}

			legacyDir, _ := cmd.Flags().GetString("from")
			if legacyDir == "" {
				legacyDir = cfg.LegacyPath()
			}
			paths := migrate.DefaultPaths(legacyDir)

			if !migrate.HasLegacyData(paths) {
				fmt.Println("✨ No legacy data found. Nothing to migrate.")
				return nil
			}

			s := store.New(cfg.LogPath(), time.Duration(cfg.LockTimeout))
			res, err := migrate.Run(s, paths)
			if err != nil {
				return err
			}
			if res.AlreadyDone {
				fmt.Println("✅ Migration already completed. Nothing to do.")
				return nil
			}

			fmt.Println("✅ Migration complete!")
			fmt.Println()
			fmt.Printf("   Behaviors:   %d\n", res.Behaviors)
			fmt.Printf("   Identity:    %d\n", res.Identity)
			fmt.Printf("   User facts:  %d\n", res.User)
			fmt.Printf("   Learnings:   %d\n", res.Learnings)
			fmt.Printf("   Preferences: %d\n", res.Preferences)
			fmt.Printf("   Contexts:    %d\n", res.Contexts)
			fmt.Printf("   Tasks:       %d\n", res.Tasks)
			fmt.Printf("   Skipped:     %d\n", res.Skipped)
			fmt.Println()
			fmt.Println("   Legacy files were left untouched.")
			return nil
		},
	}
	cmd.Flags().String("from", "", "directory holding the legacy logs (default: data dir)")
	return cmd
}

// exportCmd writes the snapshot to SQLite.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the materialized snapshot to SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := open()
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = filepath.Join(cfg.DataDir, "brain.db")
			}

			b, err := d.Snapshot()
			if err != nil {
				return err
			}
			if err := export.ToSQLite(b, out); err != nil {
				return err
			}
			fmt.Printf("💾 Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output database path (default: <data-dir>/brain.db)")
	return cmd
}

// watchCmd runs the reminder scheduler in the foreground.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for due reminders until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := open()
			if err != nil {
				return err
			}
			logging.SetLevel(logging.INFO)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched := scheduler.New(d, time.Duration(cfg.SchedulerInterval), func(r *core.Reminder) {
				fmt.Printf("⏰ %s\n", r.Description)
			})

			fmt.Println("👀 Watching for reminders. Ctrl-C to stop.")
			if err := sched.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

// versionCmd prints the version.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mnemo %s\n", version)
		},
	}
}
