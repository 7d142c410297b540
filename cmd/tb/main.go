package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/repo"
	"taskboard/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tb",
	Short: "Taskboard CLI",
	Long: `Taskboard manages users, teams, projects and hierarchical tasks.
- Workspace: the .taskboard directory holding the database; taskboard.yml next to it configures the server.
- Users: identities with a role (admin, project_manager, developer, viewer) and a lifecycle (active, inactive, suspended).
- Teams: own their membership; capacity-bounded; only active teams take members and projects.
- Projects: belong to a team; planned -> active -> completed, cancel as the exit.
- Tasks: belong to a project, nest up to three levels; todo -> in_progress -> in_review -> done, cancel cascades.
- Event log: every state change is recorded, view with 'tb log tail'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "acting user id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Bootstrap(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine)
}

// actor returns the acting user id for mutations. Reads do not need one.
func actor() (domain.UserID, error) {
	raw := strings.TrimSpace(viper.GetString("actor-id"))
	if raw == "" {
		return domain.UserID{}, fmt.Errorf("--actor-id required (a user id)")
	}
	return domain.ParseUserID(raw)
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userCreateCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userShowCmd())
	user.AddCommand(userUpdateCmd())
	user.AddCommand(userRoleCmd())
	user.AddCommand(userStatusCmd())
	return user
}

func userCreateCmd() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				// Bootstrapping: the first user is created without an actor.
				var actorID domain.UserID
				if raw := strings.TrimSpace(viper.GetString("actor-id")); raw != "" {
					parsed, err := domain.ParseUserID(raw)
					if err != nil {
						return err
					}
					actorID = parsed
				}
				u, err := e.CreateUser(ctx, engine.UserCreateOptions{
					Name:    name,
					Email:   email,
					Role:    role,
					ActorID: actorID,
				})
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "developer", "role (admin, project_manager, developer, viewer)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userListCmd() *cobra.Command {
	var f repo.UserFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ListUsers(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Status"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role, u.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func userShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseUserID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.GetUser(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseUserID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				current, err := e.GetUser(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					name = current.Name
				}
				if !cmd.Flags().Changed("email") {
					email = current.Email.String()
				}
				u, err := e.UpdateUserProfile(ctx, id, name, email, actorID)
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func userRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <user-id> <role>",
		Short: "Change user role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseUserID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.UpdateUserRole(ctx, id, args[1], actorID)
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	return cmd
}

func userStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <user-id> <status>",
		Short: "Change user lifecycle status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseUserID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.SetUserStatus(ctx, id, args[1], actorID)
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	return cmd
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Manage teams"}
	team.AddCommand(teamCreateCmd())
	team.AddCommand(teamListCmd())
	team.AddCommand(teamShowCmd())
	team.AddCommand(teamStatusCmd())
	team.AddCommand(memberCmd())
	return team
}

func teamCreateCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create team",
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTeam(ctx, name, description, actorID)
				if err != nil {
					return err
				}
				return printJSON(teamOut(t))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "team name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func teamListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teams, err := e.ListTeams(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					out := make([]map[string]any, 0, len(teams))
					for _, t := range teams {
						out = append(out, teamOut(t))
					}
					return printJSON(out)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Members"})
				for _, t := range teams {
					tw.AppendRow(table.Row{t.ID, t.Name, t.Status, t.MemberCount()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func teamShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <team-id>",
		Short: "Show a team and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTeamID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTeam(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(teamOut(t))
				}
				fmt.Printf("%s (%s) %s\n", t.Name, t.ID, t.Status)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"User", "Role", "Joined"})
				for _, m := range t.Members() {
					tw.AppendRow(table.Row{m.UserID, m.Role, m.JoinedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func teamStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <team-id> <status>",
		Short: "Change team lifecycle status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTeamID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ChangeTeamStatus(ctx, id, args[1], actorID)
				if err != nil {
					return err
				}
				return printJSON(teamOut(t))
			})
		},
	}
	return cmd
}

func memberCmd() *cobra.Command {
	member := &cobra.Command{Use: "member", Short: "Manage team membership"}
	member.AddCommand(memberAddCmd())
	member.AddCommand(memberRemoveCmd())
	member.AddCommand(memberRoleCmd())
	return member
}

func memberAddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add <team-id> <user-id>",
		Short: "Add member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := domain.ParseTeamID(args[0])
			if err != nil {
				return err
			}
			userID, err := domain.ParseUserID(args[1])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AddTeamMember(ctx, teamID, userID, role, actorID)
				if err != nil {
					return err
				}
				return printJSON(teamOut(t))
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "developer", "member role (developer, project_manager, team_lead, viewer)")
	return cmd
}

func memberRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <team-id> <user-id>",
		Short: "Remove member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := domain.ParseTeamID(args[0])
			if err != nil {
				return err
			}
			userID, err := domain.ParseUserID(args[1])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.RemoveTeamMember(ctx, teamID, userID, actorID)
				if err != nil {
					return err
				}
				return printJSON(teamOut(t))
			})
		},
	}
	return cmd
}

func memberRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <team-id> <user-id> <role>",
		Short: "Change member role",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := domain.ParseTeamID(args[0])
			if err != nil {
				return err
			}
			userID, err := domain.ParseUserID(args[1])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ChangeTeamMemberRole(ctx, teamID, userID, args[2], actorID)
				if err != nil {
					return err
				}
				return printJSON(teamOut(t))
			})
		},
	}
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectStatusCmd())
	prj.AddCommand(projectCancelCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var name, description, teamID, plannedEnd string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedTeam, err := domain.ParseTeamID(teamID)
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			var plannedPtr *time.Time
			if plannedEnd != "" {
				t, err := time.Parse(time.RFC3339, plannedEnd)
				if err != nil {
					return fmt.Errorf("--planned-end must be RFC 3339: %w", err)
				}
				plannedPtr = &t
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					Name:           name,
					Description:    description,
					TeamID:         parsedTeam,
					PlannedEndDate: plannedPtr,
					ActorID:        actorID,
				})
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&teamID, "team", "", "owning team id")
	cmd.Flags().StringVar(&plannedEnd, "planned-end", "", "planned end date (RFC 3339)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func projectListCmd() *cobra.Command {
	var teamID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			var parsedTeam domain.TeamID
			if teamID != "" {
				parsed, err := domain.ParseTeamID(teamID)
				if err != nil {
					return err
				}
				parsedTeam = parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projects, err := e.ListProjects(ctx, parsedTeam, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Team"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.TeamID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&teamID, "team", "", "team filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with task counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseProjectID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetProject(ctx, id)
				if err != nil {
					return err
				}
				counts, err := e.ProjectStatusCounts(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"project":     p,
					"task_counts": counts,
				})
			})
		},
	}
	return cmd
}

func projectStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <project-id> <status>",
		Short: "Change project lifecycle status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseProjectID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ChangeProjectStatus(ctx, id, args[1], actorID)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func projectCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <project-id>",
		Short: "Cancel a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseProjectID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CancelProject(ctx, id, actorID)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskSubtaskCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskTreeCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskUnassignCmd())
	task.AddCommand(taskCancelCmd())
	task.AddCommand(taskHoursCmd())
	return task
}

func taskSpecFlags(cmd *cobra.Command, spec *domain.TaskSpec, due *string) {
	cmd.Flags().StringVar(&spec.Title, "title", "", "task title")
	cmd.Flags().StringVar(&spec.Description, "description", "", "description")
	cmd.Flags().StringVar((*string)(&spec.Priority), "priority", "", "priority (low, medium, high, critical)")
	cmd.Flags().Float64Var(&spec.EstimatedHours, "estimate", 0, "estimated hours")
	cmd.Flags().StringVar(due, "due", "", "due date (RFC 3339)")
	_ = cmd.MarkFlagRequired("title")
}

func resolveDue(spec *domain.TaskSpec, due string) error {
	if due == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, due)
	if err != nil {
		return fmt.Errorf("--due must be RFC 3339: %w", err)
	}
	spec.DueDate = &t
	return nil
}

func taskAddCmd() *cobra.Command {
	var spec domain.TaskSpec
	var projectID, due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedProject, err := domain.ParseProjectID(projectID)
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			if err := resolveDue(&spec, due); err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					Spec:      spec,
					ProjectID: parsedProject,
					ActorID:   actorID,
				})
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	taskSpecFlags(cmd, &spec, &due)
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskSubtaskCmd() *cobra.Command {
	var spec domain.TaskSpec
	var due string
	cmd := &cobra.Command{
		Use:   "subtask <parent-task-id>",
		Short: "Create subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			if err := resolveDue(&spec, due); err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateSubtask(ctx, parentID, spec, actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	taskSpecFlags(cmd, &spec, &due)
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					out := make([]map[string]any, 0, len(tasks))
					for _, t := range tasks {
						out = append(out, taskOut(t))
					}
					return printJSON(out)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee"})
				for _, t := range tasks {
					assignee := ""
					if !t.AssigneeID.IsEmpty() {
						assignee = t.AssigneeID.String()
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee filter")
	cmd.Flags().BoolVar(&f.RootsOnly, "roots-only", false, "only top-level tasks")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	return cmd
}

func taskTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <task-id>",
		Short: "Print a task tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("%s [%s] %.0f%%\n", t.Title, t.Status, t.CompletionPercentage())
				subs := t.Subtasks()
				for i, sub := range subs {
					printTaskTree(sub, "", i == len(subs)-1)
				}
				return nil
			})
		},
	}
	return cmd
}

func printTaskTree(t *domain.Task, prefix string, last bool) {
	connector := "├── "
	newPrefix := prefix + "│   "
	if last {
		connector = "└── "
		newPrefix = prefix + "    "
	}
	fmt.Printf("%s%s%s [%s]\n", prefix, connector, t.Title, t.Status)
	subs := t.Subtasks()
	for i, sub := range subs {
		printTaskTree(sub, newPrefix, i == len(subs)-1)
	}
}

func taskStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Change task workflow status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ChangeTaskStatus(ctx, id, args[1], actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	return cmd
}

func taskAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <task-id> <user-id>",
		Short: "Assign task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			assignee, err := domain.ParseUserID(args[1])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AssignTask(ctx, id, assignee, actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	return cmd
}

func taskUnassignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unassign <task-id>",
		Short: "Unassign task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UnassignTask(ctx, id, actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	return cmd
}

func taskCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel task and its open subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CancelTask(ctx, id, actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	return cmd
}

func taskHoursCmd() *cobra.Command {
	var hours float64
	cmd := &cobra.Command{
		Use:   "hours <task-id>",
		Short: "Log worked hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTaskID(args[0])
			if err != nil {
				return err
			}
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.LogTaskHours(ctx, id, hours, actorID)
				if err != nil {
					return err
				}
				return printJSON(taskOut(t))
			})
		},
	}
	cmd.Flags().Float64Var(&hours, "hours", 0, "hours worked")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: user, team, project and task changes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.ListEvents(ctx, n, 0, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	cmd.Flags().StringVar(&f.ActorID, "actor", "", "actor filter")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create API key for the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := actor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				secret := uuid.NewString()
				key := repo.APIKey{
					ID:      uuid.NewString(),
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
					ActorID: actorID.String(),
				}
				if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				// The secret is printed exactly once; only its hash is stored.
				return printJSON(map[string]string{
					"id":       key.ID,
					"name":     key.Name,
					"actor_id": key.ActorID,
					"key":      secret,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, actorFilter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Actor", "Created", "Revoked"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.ActorID, k.CreatedAt, k.RevokedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorFilter, "actor", "", "filter by actor id")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.RevokeAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Bootstrap(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer appCtx.Close()
			cfg := appCtx.Config
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && cfg.Server.BasePath != "" {
				basePath = cfg.Server.BasePath
			}
			authCfg := server.AuthConfig{
				JWTSecret:              cfg.Auth.JWTSecret,
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActor,
			}
			if env := os.Getenv("TASKBOARD_JWT_SECRET"); env != "" {
				authCfg.JWTSecret = env
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowLegacyActorHeader {
				return fmt.Errorf("TASKBOARD_JWT_SECRET (or auth.jwt_secret) is required when the legacy actor header is disabled")
			}
			handler, err := server.New(server.Config{Engine: appCtx.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(appCtx.Engine, cfg.Webhooks)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Taskboard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api/v1", "API base path")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// teamOut flattens a team for output; the owned member collection is not an
// exported field on the aggregate.
func teamOut(t *domain.Team) map[string]any {
	members := make([]map[string]any, 0, t.MemberCount())
	for _, m := range t.Members() {
		members = append(members, map[string]any{
			"id":        m.ID.String(),
			"user_id":   m.UserID.String(),
			"role":      m.Role,
			"joined_at": m.JoinedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"id":          t.ID.String(),
		"name":        t.Name,
		"description": t.Description,
		"status":      t.Status,
		"members":     members,
		"created_at":  t.CreatedAt.Format(time.RFC3339),
		"updated_at":  t.UpdatedAt.Format(time.RFC3339),
		"version":     t.Version,
	}
}

func taskOut(t *domain.Task) map[string]any {
	out := map[string]any{
		"id":         t.ID.String(),
		"title":      t.Title,
		"status":     t.Status,
		"priority":   t.Priority,
		"project_id": t.ProjectID.String(),
		"completion": t.CompletionPercentage(),
		"created_at": t.CreatedAt.Format(time.RFC3339),
		"updated_at": t.UpdatedAt.Format(time.RFC3339),
		"version":    t.Version,
	}
	if t.Description != "" {
		out["description"] = t.Description
	}
	if !t.ParentID.IsEmpty() {
		out["parent_id"] = t.ParentID.String()
	}
	if !t.AssigneeID.IsEmpty() {
		out["assignee_id"] = t.AssigneeID.String()
	}
	if t.EstimatedHours > 0 {
		out["estimated_hours"] = t.EstimatedHours
	}
	if t.ActualHours > 0 {
		out["actual_hours"] = t.ActualHours
	}
	if t.DueDate != nil {
		out["due_date"] = t.DueDate.Format(time.RFC3339)
	}
	if t.HasSubtasks() {
		subs := make([]map[string]any, 0, t.SubtaskCount())
		for _, sub := range t.Subtasks() {
			subs = append(subs, taskOut(sub))
		}
		out["subtasks"] = subs
	}
	return out
}
