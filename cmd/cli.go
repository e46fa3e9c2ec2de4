package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dtroode/learnsync/internal/model"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type sessionManager interface {
	Restore(ctx context.Context) (model.SessionState, error)
	Mode() model.BackendMode
	State() model.SessionState
	Login(ctx context.Context, email, password string) (model.SessionState, error)
	Register(ctx context.Context, data model.RegisterData) (model.User, model.SessionState, error)
	Logout(ctx context.Context) error
	SetEnrollment(ctx context.Context, courseIDs []string) error
	CompleteCourse(ctx context.Context, courseID string) error
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) error
	ReconcileCertificates(ctx context.Context) (int, error)
}

type confirmer interface {
	Confirm(ctx context.Context, email string) error
}

type commandLine struct {
	sessions sessionManager
	identity confirmer
	migrate  func(ctx context.Context) error
	out      io.Writer
}

// needsSession reports whether the command in args works on the signed-in user.
func needsSession(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "migrate", "version", "help":
		return false
	}
	return true
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  status                         - show backend mode and signed-in user")
	fmt.Fprintln(cli.out, "  login -email EMAIL             - sign in, the password is prompted next")
	fmt.Fprintln(cli.out, "  register -email EMAIL -name NAME [-phone PHONE] [-role ROLE] - create an account")
	fmt.Fprintln(cli.out, "  logout                         - sign out")
	fmt.Fprintln(cli.out, "  enroll COURSE...               - enroll in courses")
	fmt.Fprintln(cli.out, "  complete COURSE                - mark a course completed")
	fmt.Fprintln(cli.out, "  profile KEY=VALUE...           - update profile fields")
	fmt.Fprintln(cli.out, "  reconcile                      - retry pending certificates")
	fmt.Fprintln(cli.out, "  confirm -email EMAIL           - confirm a registered identity")
	fmt.Fprintln(cli.out, "  migrate                        - apply database migrations")
	fmt.Fprintln(cli.out, "  version                        - print build information")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	if needsSession(args) {
		if _, err := cli.sessions.Restore(ctx); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginEmail := loginCmd.String("email", "", "The account email. The password will be prompted next.")

	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerCmd.SetOutput(cli.out)
	registerEmail := registerCmd.String("email", "", "The account email. The password will be prompted next.")
	registerName := registerCmd.String("name", "", "Display name.")
	registerPhone := registerCmd.String("phone", "", "Phone number.")
	registerRole := registerCmd.String("role", string(model.RoleLearner), "One of learner, instructor, admin.")
	registerBio := registerCmd.String("bio", "", "Short bio.")
	registerLocation := registerCmd.String("location", "", "Location.")
	registerOccupation := registerCmd.String("occupation", "", "Occupation.")
	registerEducation := registerCmd.String("education", "", "Education.")

	confirmCmd := flag.NewFlagSet("confirm", flag.ContinueOnError)
	confirmCmd.SetOutput(cli.out)
	confirmEmail := confirmCmd.String("email", "", "The email of the identity to confirm.")

	switch args[1] {
	case "status":
		return cli.status()
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginEmail, pwd)
	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *registerEmail == "" || *registerName == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			registerCmd.Usage()
			return errHelp
		}
		return cli.register(ctx, model.RegisterData{
			Email:      *registerEmail,
			Password:   pwd,
			Name:       *registerName,
			Phone:      *registerPhone,
			Role:       model.Role(*registerRole),
			Bio:        *registerBio,
			Location:   *registerLocation,
			Occupation: *registerOccupation,
			Education:  *registerEducation,
		})
	case "logout":
		if err := cli.sessions.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Signed out.")
		return nil
	case "enroll":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.sessions.SetEnrollment(ctx, args[2:]); err != nil {
			return err
		}
		return cli.status()
	case "complete":
		if len(args) != 3 || args[2] == "" {
			cli.printUsage()
			return errHelp
		}
		if err := cli.sessions.CompleteCourse(ctx, args[2]); err != nil {
			return err
		}
		return cli.status()
	case "profile":
		fields, err := parseFields(args[2:])
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.sessions.UpdateProfile(ctx, model.ParseProfilePatch(fields)); err != nil {
			return err
		}
		return cli.status()
	case "reconcile":
		n, err := cli.sessions.ReconcileCertificates(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Issued %d pending certificate(s).\n", n)
		return nil
	case "confirm":
		if err := confirmCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *confirmEmail == "" {
			confirmCmd.Usage()
			return errHelp
		}
		if cli.sessions.Mode() != model.BackendRemote {
			return model.NewAuthError(model.ReasonUnreachable, nil)
		}
		if err := cli.identity.Confirm(ctx, *confirmEmail); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Confirmed %s.\n", *confirmEmail)
		return nil
	case "migrate":
		if err := cli.migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Migrations applied.")
		return nil
	case "version":
		printVersion(cli.out)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) login(ctx context.Context, email, password string) error {
	state, err := cli.sessions.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s).\n", state.User.Profile.Email, state.Source)
	return nil
}

func (cli *commandLine) register(ctx context.Context, data model.RegisterData) error {
	user, state, err := cli.sessions.Register(ctx, data)
	if err != nil {
		return err
	}
	if state.Status != model.SessionAuthenticated || state.User == nil || state.User.ID != user.ID {
		fmt.Fprintf(cli.out, "Registered %s. Confirm the email address before signing in.\n", user.Profile.Email)
		return nil
	}
	fmt.Fprintf(cli.out, "Registered and signed in as %s.\n", user.Profile.Email)
	return nil
}

func (cli *commandLine) status() error {
	state := cli.sessions.State()
	fmt.Fprintf(cli.out, "Backend:   %s\n", cli.sessions.Mode())
	fmt.Fprintf(cli.out, "Session:   %s\n", state.Status)
	if state.Status != model.SessionAuthenticated || state.User == nil {
		return nil
	}

	u := state.User
	fmt.Fprintf(cli.out, "Source:    %s\n", state.Source)
	fmt.Fprintf(cli.out, "User:      %s <%s> (%s)\n", u.Profile.Name, u.Profile.Email, u.Role)
	fmt.Fprintf(cli.out, "Enrolled:  %s\n", formatCourses(u.EnrolledCourses))
	fmt.Fprintf(cli.out, "Completed: %s\n", formatCourses(u.CompletedCourses))
	return nil
}

func formatCourses(s model.CourseSet) string {
	if s.Len() == 0 {
		return "-"
	}
	return strings.Join(s.Slice(), ", ")
}

// parseFields splits KEY=VALUE arguments.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid field %q, expected KEY=VALUE", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

// errorMessage returns the user-facing text of err.
func errorMessage(err error) string {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message()
	}
	return err.Error()
}
