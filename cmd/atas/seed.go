package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/event"
)

// fixtures is the YAML document read by the seed command.
type fixtures struct {
	Users  []userFixture  `yaml:"users"`
	Events []eventFixture `yaml:"events"`
}

type userFixture struct {
	Email    string          `yaml:"email"`
	Password string          `yaml:"password"`
	FullName string          `yaml:"full_name"`
	Role     string          `yaml:"role"`
	Profile  *profileFixture `yaml:"profile"`
}

type profileFixture struct {
	Title        string   `yaml:"title"`
	Bio          string   `yaml:"bio"`
	Skills       []string `yaml:"skills"`
	Tags         []string `yaml:"tags"`
	Availability string   `yaml:"availability"`
	Visibility   string   `yaml:"visibility"`
}

type eventFixture struct {
	Organizer   string    `yaml:"organizer"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Format      string    `yaml:"format"`
	Location    string    `yaml:"location"`
	StartsAt    time.Time `yaml:"starts_at"`
	EndsAt      time.Time `yaml:"ends_at"`
	Capacity    int       `yaml:"capacity"`
	Publish     bool      `yaml:"publish"`
}

// seedResult counts what a seed run created.
type seedResult struct {
	Users    int
	Existing int
	Events   int
}

func seedCmd(envFile *string) *cobra.Command {
	var (
		file  string
		embed bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, profiles and events from a YAML file",
		Long: `Load users, profiles and events from a YAML file.

Users that already exist are signed in with the given password and
their profile is updated. Events reference their organizer by email.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixtures: %w", err)
			}
			defer func() { _ = f.Close() }()

			fx, err := loadFixtures(f)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			client, slogger, err := openClient(cfg, "seeding atas")
			if err != nil {
				return err
			}
			defer closeClient(client, slogger)

			res, err := seed(cmd.Context(), client, fx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "users: %d created, %d existing; events: %d created\n", res.Users, res.Existing, res.Events)

			if embed {
				n, err := client.ProcessPending(cmd.Context())
				if err != nil {
					return fmt.Errorf("embed: %w", err)
				}
				fmt.Fprintf(out, "embedded %d entities\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the YAML fixtures")
	cmd.Flags().BoolVar(&embed, "embed", false, "Drain the embedding queue before exiting")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// loadFixtures decodes a fixtures document, rejecting unknown keys.
func loadFixtures(r io.Reader) (fixtures, error) {
	var fx fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return fx, nil
}

// seed applies fx through the client's services.
func seed(ctx context.Context, client *atas.Client, fx fixtures) (seedResult, error) {
	var res seedResult
	actors := make(map[string]service.Actor, len(fx.Users))

	for _, u := range fx.Users {
		session, err := client.Auth.Register(ctx, service.RegisterParams{
			Email:    u.Email,
			Password: u.Password,
			FullName: u.FullName,
			Role:     u.Role,
		})
		switch {
		case errors.Is(err, domain.ErrConflict):
			session, err = client.Auth.Login(ctx, u.Email, u.Password)
			if err != nil {
				return res, fmt.Errorf("user %s exists: %w", u.Email, err)
			}
			res.Existing++
		case err != nil:
			return res, fmt.Errorf("register %s: %w", u.Email, err)
		default:
			res.Users++
		}

		actor := service.Actor{UserID: session.User.ID(), Role: session.User.Role()}
		actors[session.User.Email()] = actor

		if u.Profile == nil {
			continue
		}
		update, err := u.Profile.update()
		if err != nil {
			return res, fmt.Errorf("profile of %s: %w", u.Email, err)
		}
		if _, err := client.Profiles.Update(ctx, actor, update); err != nil {
			return res, fmt.Errorf("update profile of %s: %w", u.Email, err)
		}
	}

	for _, e := range fx.Events {
		actor, ok := actors[account.NormalizeEmail(e.Organizer)]
		if !ok {
			return res, fmt.Errorf("event %q: organizer %s is not in the fixtures", e.Title, e.Organizer)
		}
		format, err := event.ParseFormat(e.Format)
		if err != nil {
			return res, fmt.Errorf("event %q: %w", e.Title, err)
		}
		created, err := client.Events.Create(ctx, actor, event.Details{
			Title:       e.Title,
			Description: e.Description,
			Format:      format,
			Location:    e.Location,
			StartsAt:    e.StartsAt,
			EndsAt:      e.EndsAt,
			Capacity:    e.Capacity,
		})
		if err != nil {
			return res, fmt.Errorf("create event %q: %w", e.Title, err)
		}
		if e.Publish {
			if _, err := client.Events.Publish(ctx, actor, created.ID()); err != nil {
				return res, fmt.Errorf("publish event %q: %w", e.Title, err)
			}
		}
		res.Events++
	}
	return res, nil
}

func (p profileFixture) update() (account.ProfileUpdate, error) {
	visibility, err := account.ParseVisibility(p.Visibility)
	if err != nil {
		return account.ProfileUpdate{}, err
	}
	return account.ProfileUpdate{
		Title:        &p.Title,
		Bio:          &p.Bio,
		Skills:       p.Skills,
		Tags:         p.Tags,
		Availability: &p.Availability,
		Visibility:   &visibility,
	}, nil
}
