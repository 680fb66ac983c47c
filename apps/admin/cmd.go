package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp          = errors.New("help provided")
	errNoDatabase    = errors.New("no database configured")
	errPwdMismatch   = errors.New("passwords do not match")
	errEmptyPassword = errors.New("password cannot be empty")
)

type commandLine struct {
	conf       *core.Config
	db         *sql.DB // nil without a configured database
	usrSvc     user.Service
	validate   *validator.Validate
	translator ut.Translator
	in         io.Reader
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                       - run a goose command (up, down, status, redo, ...)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-role ROLE] - create an active user; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                   - set a user's password; the password is prompted")
	fmt.Fprintln(cli.out, "  onboard -token TOKEN [-api URL]              - complete a school's onboarding from the terminal")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := cli.newFlagSet("adduser")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", user.PortalAdmin, "The user's role: admin or teacher.")

	resetPasswordCmd := cli.newFlagSet("resetpassword")
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	onboardCmd := cli.newFlagSet("onboard")
	onboardToken := onboardCmd.String("token", "", "The verification token from the sign up email.")
	onboardAPI := onboardCmd.String("api", cli.conf.Onboarding.APIBaseURL, "The API base URL.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "onboard":
		if err := onboardCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.onboard(*onboardToken, *onboardAPI)

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassword reads a password and its confirmation from the terminal.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}

	fmt.Fprint(cli.out, "Confirm password:")
	confirm, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password confirmation")
	}
	if string(confirm) != string(pwd) {
		return "", errPwdMismatch
	}
	return string(pwd), nil
}

// describeError flattens validation errors into "field: message" pairs.
func (cli *commandLine) describeError(err error) error {
	var msgs []string
	switch verr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fErr := range verr {
			msgs = append(msgs, fErr.Field()+": "+fErr.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fErr := range verr.Fields {
			msgs = append(msgs, fErr.Field+": "+fErr.Error)
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
