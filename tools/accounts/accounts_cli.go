package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/mflix-org/marquee/user"
)

const env_prefix = "MARQUEE"

type admin struct {
	store   user.Storage
	timeout time.Duration
}

func main() {
	app := cli.NewApp()

	app.Name = "accounts"
	app.Usage = "Internal tool to find and clean up mflix accounts"
	app.Version = "0.0.1"

	emailFlag := cli.StringFlag{
		Name:  "email",
		Usage: "email address of the account",
	}

	app.Commands = []cli.Command{
		{
			Name:      "find",
			ShortName: "f",
			Usage:     "find an account by email",
			Flags:     []cli.Flag{emailFlag},
			Action:    withAdmin(findAccount),
		},
		{
			Name:      "delete",
			ShortName: "d",
			Usage:     "delete an account and all of its sessions",
			Flags:     []cli.Flag{emailFlag},
			Action:    withAdmin(deleteAccount),
		},
		{
			Name:      "sessions",
			ShortName: "s",
			Usage:     "show the session of an account",
			Flags: []cli.Flag{
				emailFlag,
				cli.BoolFlag{
					Name:  "clear",
					Usage: "remove every session of the account",
				},
			},
			Action: withAdmin(accountSessions),
		},
		{
			Name:      "preferences",
			ShortName: "p",
			Usage:     "replace the preferences of an account",
			Flags: []cli.Flag{
				emailFlag,
				cli.StringSliceFlag{
					Name:  "set",
					Usage: "a `key=value` preference, repeat for more",
				},
			},
			Action: withAdmin(setPreferences),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withAdmin connects to the store configured by the MARQUEE_MONGO_* variables
// and closes it once the command is done.
func withAdmin(action func(*admin, *cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		var config user.MongoConfig
		if err := envconfig.Process(env_prefix, &config); err != nil {
			return errors.Wrap(err, "problem loading config")
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()
		store, err := user.NewMongoStoreClient(ctx, &config)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		return action(&admin{store: store, timeout: config.Timeout}, c)
	}
}

func (a *admin) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func requireEmail(c *cli.Context) (string, error) {
	email := strings.ToLower(strings.TrimSpace(c.String("email")))
	if email == "" {
		return "", cli.NewExitError("--email is required", 1)
	}
	return email, nil
}

func findAccount(a *admin, c *cli.Context) error {
	email, err := requireEmail(c)
	if err != nil {
		return err
	}
	ctx, cancel := a.opContext()
	defer cancel()

	usr, err := a.store.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if usr == nil {
		return cli.NewExitError(fmt.Sprintf("no account for %s", email), 1)
	}
	return printJSON(usr)
}

func deleteAccount(a *admin, c *cli.Context) error {
	email, err := requireEmail(c)
	if err != nil {
		return err
	}
	ctx, cancel := a.opContext()
	defer cancel()

	if !a.store.DeleteUser(ctx, email) {
		return cli.NewExitError(fmt.Sprintf("nothing deleted for %s", email), 1)
	}
	fmt.Println("deleted", email)
	return nil
}

func accountSessions(a *admin, c *cli.Context) error {
	email, err := requireEmail(c)
	if err != nil {
		return err
	}
	ctx, cancel := a.opContext()
	defer cancel()

	if c.Bool("clear") {
		if a.store.DeleteUserSessions(ctx, email) {
			fmt.Println("sessions cleared for", email)
		} else {
			fmt.Println("no session to clear for", email)
		}
		return nil
	}

	session, err := a.store.GetUserSession(ctx, email)
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Println("no session for", email)
		return nil
	}
	return printJSON(session)
}

func setPreferences(a *admin, c *cli.Context) error {
	email, err := requireEmail(c)
	if err != nil {
		return err
	}
	prefs, err := parsePreferences(c.StringSlice("set"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	ctx, cancel := a.opContext()
	defer cancel()

	updated, err := a.store.UpdateUserPreferences(ctx, email, prefs)
	if err != nil {
		return err
	}
	fmt.Println("updated:", updated)
	return nil
}

// parsePreferences turns key=value pairs into a preferences document. Later
// pairs win over earlier ones with the same key.
func parsePreferences(pairs []string) (user.Preferences, error) {
	prefs := user.Preferences{}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, errors.Errorf("`%s` is not a key=value pair", pair)
		}
		prefs[strings.TrimSpace(kv[0])] = kv[1]
	}
	return prefs, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
