package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/onboarding"
	"github.com/trezcool/surgepay/services/onboardingapi"
)

var (
	// mockable
	afterFunc     = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	completerFunc = func(apiURL string) onboarding.Completer { return onboardingapi.NewClient(apiURL, nil) }

	errAborted = errors.New("onboarding aborted")
)

const wizardHelp = `Commands:
  add VALUE     add a teacher email or a student name
  rm VALUE      remove it again
  next          go to the next step (submits on the last step)
  back          go to the previous step
  skip          skip this step (submits on the last step)
  submit        submit now
  quit          leave without submitting`

// wizard is the terminal rendition of the onboarding flow.
type wizard struct {
	cli      *commandLine
	sess     *onboarding.Session
	scanner  *bufio.Scanner
	redirect chan string
}

func (cli *commandLine) onboard(token, apiURL string) error {
	w := &wizard{
		cli:      cli,
		scanner:  bufio.NewScanner(cli.in),
		redirect: make(chan string, 1),
	}
	nav := onboarding.NavigatorFunc(func(path string) { w.redirect <- path })
	coord := onboarding.NewCoordinator(completerFunc(apiURL), nav,
		onboarding.WithDashboardPath(cli.conf.Onboarding.DashboardPath),
		onboarding.WithRedirectDelay(cli.conf.Onboarding.RedirectDelay),
		onboarding.WithAfterFunc(afterFunc),
	)
	w.sess = onboarding.NewSession(token, coord)
	return w.run(context.Background())
}

func (w *wizard) printf(format string, args ...interface{}) {
	fmt.Fprintf(w.cli.out, format, args...)
}

// readLine returns the next trimmed input line; ok is false once the input is exhausted.
func (w *wizard) readLine(prompt string) (line string, ok bool) {
	w.printf("%s", prompt)
	if !w.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(w.scanner.Text()), true
}

func (w *wizard) run(ctx context.Context) error {
	st := w.sess.State()
	if !st.TokenValid {
		w.printf("%s\nSign in again to get a new link: %s\n",
			st.Notification.Message, core.JoinURL(w.cli.conf.FrontendBaseURL, "/login"))
		return errors.New(st.Notification.Message)
	}

	for {
		st = w.sess.State()
		w.printf("\nStep %d of %d: %s\n", st.Step, onboarding.LastStep, st.Step)

		var err error
		switch st.Step {
		case onboarding.StepSchoolInfo:
			st, err = w.schoolInfo()
		default:
			st, err = w.listStep(ctx, st)
		}
		if err != nil {
			return err
		}

		if n := st.Notification; n.Show {
			w.printf("[%s] %s\n", n.Kind, n.Message)
			w.sess.DismissNotification()
			if n.Kind == onboarding.KindSuccess {
				path := <-w.redirect
				w.printf("Opening %s\n", core.JoinURL(w.cli.conf.FrontendBaseURL, path))
				return nil
			}
		}
	}
}

func (w *wizard) schoolInfo() (onboarding.State, error) {
	d := w.sess.State().Draft
	fields := []struct {
		prompt string
		value  *string
	}{
		{"School name", &d.SchoolName},
		{"Motto (optional)", &d.Motto},
		{"Address", &d.Address},
		{"Logo URL (optional)", &d.Logo},
	}
	for _, f := range fields {
		prompt := f.prompt + ": "
		if *f.value != "" {
			prompt = fmt.Sprintf("%s [%s]: ", f.prompt, *f.value)
		}
		line, ok := w.readLine(prompt)
		if !ok {
			return onboarding.State{}, errAborted
		}
		if line != "" {
			*f.value = line
		}
	}
	w.sess.SetSchoolInfo(d.SchoolName, d.Motto, d.Address, d.Logo)
	return w.sess.Next(), nil
}

func (w *wizard) listStep(ctx context.Context, st onboarding.State) (onboarding.State, error) {
	add, rm, items := w.sess.AddStudent, w.sess.RemoveStudent, st.Draft.Students
	if st.Step == onboarding.StepTeachers {
		add, rm, items = w.sess.AddTeacher, w.sess.RemoveTeacher, st.Draft.Teachers
	}
	for i, item := range items {
		w.printf("  %d. %s\n", i+1, item)
	}

	for {
		line, ok := w.readLine("> ")
		if !ok {
			return onboarding.State{}, errAborted
		}
		cmd, arg := line, ""
		if i := strings.IndexByte(line, ' '); i >= 0 {
			cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
		}

		switch strings.ToLower(cmd) {
		case "add":
			st = add(arg)
			w.printf("%d %s\n", len(w.items(st)), st.Step)
		case "rm":
			st = rm(arg)
			w.printf("%d %s\n", len(w.items(st)), st.Step)
		case "back":
			if !st.CanGoBack() {
				continue
			}
			return w.sess.Prev(), nil
		case "", "next":
			if st.Step == onboarding.LastStep {
				return w.submit(ctx)
			}
			return w.sess.Next(), nil
		case "skip":
			return w.skip(ctx)
		case "submit":
			return w.submit(ctx)
		case "quit":
			return onboarding.State{}, errAborted
		default:
			w.printf("%s\n", wizardHelp)
		}
	}
}

func (w *wizard) items(st onboarding.State) []string {
	if st.Step == onboarding.StepTeachers {
		return st.Draft.Teachers
	}
	return st.Draft.Students
}

func (w *wizard) skip(ctx context.Context) (onboarding.State, error) {
	if w.sess.State().Step == onboarding.LastStep {
		w.printf("Submitting...\n")
	}
	st, err := w.sess.Skip(ctx)
	return st, errors.Wrap(err, "skipping step")
}

func (w *wizard) submit(ctx context.Context) (onboarding.State, error) {
	w.printf("Submitting...\n")
	st, err := w.sess.Submit(ctx)
	return st, errors.Wrap(err, "submitting onboarding")
}
