package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
)

var (
	readPasswordFunc = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

type adminAccounts interface {
	CreateAdmin(ctx context.Context, req models.CreateAdminRequest) (*models.UserInfo, error)
	ResetPassword(ctx context.Context, email, password string) error
}

type enrollments interface {
	Enroll(ctx context.Context, inquiryID string, meta service.AuditMeta) (*models.EnrollResult, error)
	EnrollAll(ctx context.Context, meta service.AuditMeta) (*models.BatchEnrollResult, error)
	Unenroll(ctx context.Context, studentID string, meta service.AuditMeta) (*models.ActiveStudent, error)
}

type commandLine struct {
	admins      adminAccounts
	enrollments enrollments
	out         io.Writer
}

// cliMeta tags audit entries written by the CLI.
var cliMeta = service.AuditMeta{IP: "127.0.0.1", UserAgent: "admin-cli"}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  create-admin --email EMAIL --name NAME [--role OWNER|ADMIN]  create an administrator; the password is prompted")
	fmt.Fprintln(cli.out, "  reset-password --email EMAIL                               replace an administrator's password")
	fmt.Fprintln(cli.out, "  enroll --inquiry ID                                        issue credentials for one inquiry")
	fmt.Fprintln(cli.out, "  enroll-all                                                 enroll every pending inquiry")
	fmt.Fprintln(cli.out, "  unenroll --student ID                                      remove an active student")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "create-admin":
		fs := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
		email := fs.String("email", "", "administrator email")
		name := fs.String("name", "", "full name")
		role := fs.String("role", string(models.RoleAdmin), "OWNER or ADMIN")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *email == "" || *name == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		info, err := cli.admins.CreateAdmin(ctx, models.CreateAdminRequest{
			Email:    *email,
			Password: pwd,
			FullName: *name,
			Role:     models.UserRole(strings.ToUpper(*role)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s %s (%s)\n", info.Role, info.Email, info.ID)
		return nil

	case "reset-password":
		fs := pflag.NewFlagSet("reset-password", pflag.ContinueOnError)
		email := fs.String("email", "", "administrator email")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if err := cli.admins.ResetPassword(ctx, strings.ToLower(strings.TrimSpace(*email)), pwd); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "password updated, existing sessions revoked")
		return nil

	case "enroll":
		fs := pflag.NewFlagSet("enroll", pflag.ContinueOnError)
		inquiry := fs.String("inquiry", "", "admission inquiry id")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *inquiry == "" {
			fs.Usage()
			return errHelp
		}
		result, err := cli.enrollments.Enroll(ctx, *inquiry, cliMeta)
		if err != nil {
			return err
		}
		cli.printCredential(*result)
		return nil

	case "enroll-all":
		result, err := cli.enrollments.EnrollAll(ctx, cliMeta)
		if err != nil {
			return err
		}
		for _, enrolled := range result.Enrolled {
			cli.printCredential(enrolled)
		}
		for _, failed := range result.Failed {
			fmt.Fprintf(cli.out, "FAILED %s: %s (%s)\n", failed.InquiryID, failed.Reason, failed.Code)
		}
		fmt.Fprintf(cli.out, "%d of %d enrolled\n", result.SuccessCount, result.Processed)
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d inquiries failed", len(result.Failed))
		}
		return nil

	case "unenroll":
		fs := pflag.NewFlagSet("unenroll", pflag.ContinueOnError)
		studentID := fs.String("student", "", "active student id")
		if err := cli.parse(fs, args[2:]); err != nil {
			return err
		}
		if *studentID == "" {
			fs.Usage()
			return errHelp
		}
		student, err := cli.enrollments.Unenroll(ctx, *studentID, cliMeta)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed %s (%s)\n", student.Name, student.LoginID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) parse(fs *pflag.FlagSet, args []string) error {
	fs.SetOutput(cli.out)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc()
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errors.New("password required")
	}
	return string(pwd), nil
}

func (cli *commandLine) printCredential(result models.EnrollResult) {
	fmt.Fprintf(cli.out, "%s\t%s\tlogin=%s\tpassword=%s\n", result.Name, result.Class, result.LoginID, result.Password)
}
