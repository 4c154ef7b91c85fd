package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "traitsctl",
		Usage: "Operate a traits ledger and topology graph directly",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "env file loaded before the environment is read"},
		},
		Commands: []*cli.Command{
			usersCommand(),
			trainsCommand(),
			stationsCommand(),
			schedulesCommand(),
			searchCommand(),
			buyCommand(),
			healthCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

// session is an open coordinator with its stores
type session struct {
	cfg    *config.Config
	traits *services.Traits
	graph  *topology.Store
	close  func()
}

func openSession(c *cli.Command) (*session, error) {
	if err := config.LoadFile(c.Root().String("env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.GraphStorage == "memory" {
		log.Printf("GRAPH_STORAGE is memory, topology changes are lost on exit")
	}

	appDB, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	userDB := appDB
	if !cfg.IsSQLite() {
		if userDB, err = database.ConnectUser(cfg); err != nil {
			database.Close(appDB)
			return nil, err
		}
	}
	if err := database.AutoMigrate(userDB); err != nil {
		database.Close(appDB)
		if userDB != appDB {
			database.Close(userDB)
		}
		return nil, err
	}

	graph, err := topology.Open(cfg)
	if err != nil {
		database.Close(appDB)
		if userDB != appDB {
			database.Close(userDB)
		}
		return nil, err
	}

	return &session{
		cfg:    cfg,
		traits: services.New(appDB, userDB, graph, cfg.SearchMaxHops),
		graph:  graph,
		close: func() {
			if err := graph.Close(); err != nil {
				log.Printf("Failed to close topology graph: %v", err)
			}
			if userDB != appDB {
				database.Close(userDB)
			}
			database.Close(appDB)
		},
	}, nil
}

// withSession runs fn against an open session and closes it afterwards
func withSession(fn func(ctx context.Context, c *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(ctx, c, s)
	}
}

func requireArgs(c *cli.Command, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s requires %d argument(s): %s", c.Name, n, c.ArgsUsage)
	}
	return nil
}

func detailsFlag(c *cli.Command) (interface{}, error) {
	raw := c.String("details")
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("--details must be valid JSON")
	}
	return json.RawMessage(raw), nil
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage passengers",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a user",
				ArgsUsage: "EMAIL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "details", Usage: "JSON details payload"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					details, err := detailsFlag(c)
					if err != nil {
						return err
					}
					return s.traits.AddUser(ctx, c.Args().Get(0), details)
				}),
			},
			{
				Name:  "list",
				Usage: "List user emails",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					users, err := s.traits.GetAllUsers(ctx)
					if err != nil {
						return err
					}
					return printJSON(users)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a user, purchases are kept",
				ArgsUsage: "EMAIL",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					return s.traits.DeleteUser(ctx, c.Args().Get(0))
				}),
			},
			{
				Name:      "purchases",
				Usage:     "Show a user's purchase history, newest first",
				ArgsUsage: "EMAIL",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					purchases, err := s.traits.GetPurchaseHistory(ctx, c.Args().Get(0))
					if err != nil {
						return err
					}
					return printJSON(purchases)
				}),
			},
		},
	}
}

func trainsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trains",
		Usage: "Manage trains",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a train",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "train key, generated when empty"},
					&cli.IntFlag{Name: "capacity", Required: true},
					&cli.StringFlag{Name: "status", Value: "OPERATIONAL", Usage: "OPERATIONAL, DELAYED or BROKEN"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					status, err := types.ParseTrainStatus(c.String("status"))
					if err != nil {
						return err
					}
					key, err := s.traits.AddTrain(ctx, c.String("key"), int(c.Int("capacity")), status)
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "Change capacity or status",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "capacity"},
					&cli.StringFlag{Name: "status"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					var capacity *int
					if c.IsSet("capacity") {
						v := int(c.Int("capacity"))
						capacity = &v
					}
					var status *types.TrainStatus
					if c.IsSet("status") {
						v, err := types.ParseTrainStatus(c.String("status"))
						if err != nil {
							return err
						}
						status = &v
					}
					return s.traits.UpdateTrainDetails(ctx, c.Args().Get(0), capacity, status)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a train with its purchases and schedules",
				ArgsUsage: "KEY",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					return s.traits.DeleteTrain(ctx, c.Args().Get(0))
				}),
			},
			{
				Name:      "status",
				Usage:     "Show the current status",
				ArgsUsage: "KEY",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					status, found, err := s.traits.GetTrainCurrentStatus(ctx, c.Args().Get(0))
					if err != nil {
						return err
					}
					if !found {
						return types.NotFoundError("Train %s does not exist", c.Args().Get(0))
					}
					fmt.Println(status)
					return nil
				}),
			},
			{
				Name:      "seats",
				Usage:     "Show seat availability for one departure",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "departure", Required: true, Usage: "RFC 3339 departure time"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					departure, err := time.Parse(time.RFC3339Nano, c.String("departure"))
					if err != nil {
						return fmt.Errorf("invalid --departure: %w", err)
					}
					seats, err := s.traits.GetSeatAvailability(ctx, c.Args().Get(0), departure)
					if err != nil {
						return err
					}
					return printJSON(seats)
				}),
			},
			{
				Name:      "schedules",
				Usage:     "List the schedules of a train",
				ArgsUsage: "KEY",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					schedules, err := s.traits.GetTrainSchedules(ctx, c.Args().Get(0))
					if err != nil {
						return err
					}
					return printJSON(schedules)
				}),
			},
		},
	}
}

func stationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stations",
		Usage: "Manage stations and connections",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a station",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "details", Usage: "JSON details payload"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					details, err := detailsFlag(c)
					if err != nil {
						return err
					}
					return s.traits.AddTrainStation(ctx, c.Args().Get(0), details)
				}),
			},
			{
				Name:      "connect",
				Usage:     "Connect two stations, one direction",
				ArgsUsage: "FROM TO",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "minutes", Required: true, Usage: "travel time, 1 to 60"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					return s.traits.ConnectTrainStations(ctx, c.Args().Get(0), c.Args().Get(1), int(c.Int("minutes")))
				}),
			},
		},
	}
}

func schedulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedules",
		Usage: "Manage schedules",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all schedules",
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					schedules, err := s.traits.GetAllSchedules(ctx)
					if err != nil {
						return err
					}
					return printJSON(schedules)
				}),
			},
			{
				Name:  "add",
				Usage: "Add a schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "train", Usage: "train key, the last added train when empty"},
					&cli.StringFlag{Name: "at", Required: true, Usage: "start time HH:MM"},
					&cli.StringFlag{Name: "from", Required: true, Usage: "first valid day YYYY-MM-DD"},
					&cli.StringFlag{Name: "until", Required: true, Usage: "last valid day YYYY-MM-DD"},
					&cli.StringSliceFlag{Name: "stop", Required: true, Usage: "STATION[:WAIT] in travel order, repeatable"},
				},
				Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
					req, err := scheduleRequest(c)
					if err != nil {
						return err
					}
					id, err := s.traits.AddSchedule(ctx, req)
					if err != nil {
						return err
					}
					fmt.Println(id)
					return nil
				}),
			},
		},
	}
}

func scheduleRequest(c *cli.Command) (services.ScheduleRequest, error) {
	req := services.ScheduleRequest{TrainKey: c.String("train")}

	if _, err := fmt.Sscanf(c.String("at"), "%d:%d", &req.Hour, &req.Minute); err != nil {
		return req, fmt.Errorf("invalid --at: %w", err)
	}
	var err error
	if req.ValidFrom, err = services.ParseScheduleDate(c.String("from")); err != nil {
		return req, err
	}
	if req.ValidUntil, err = services.ParseScheduleDate(c.String("until")); err != nil {
		return req, err
	}

	for _, arg := range c.StringSlice("stop") {
		station, wait, found := strings.Cut(arg, ":")
		stop := services.ScheduleStop{Station: station}
		if found {
			if stop.WaitTime, err = strconv.Atoi(wait); err != nil {
				return req, fmt.Errorf("invalid wait time in --stop %q", arg)
			}
		}
		req.Stops = append(req.Stops, stop)
	}

	return req, nil
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search connections between two stations",
		ArgsUsage: "FROM TO",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sort", Value: "OVERALL_TRAVEL_TIME", Usage: "OVERALL_TRAVEL_TIME or NUMBER_OF_HOPS"},
			&cli.BoolFlag{Name: "desc", Usage: "descending order"},
			&cli.IntFlag{Name: "limit", Value: services.DefaultSearchLimit},
		},
		Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			sortBy, err := types.ParseSortingCriteria(c.String("sort"))
			if err != nil {
				return err
			}
			journeys, err := s.traits.SearchConnections(ctx, c.Args().Get(0), c.Args().Get(1), services.SearchOptions{
				SortBy:     sortBy,
				Descending: c.Bool("desc"),
				Limit:      int(c.Int("limit")),
			})
			if err != nil {
				return err
			}
			return printJSON(journeys)
		}),
	}
}

func buyCommand() *cli.Command {
	return &cli.Command{
		Name:  "buy",
		Usage: "Buy a ticket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "train", Required: true},
			&cli.StringFlag{Name: "departure", Required: true, Usage: "RFC 3339 departure time"},
			&cli.BoolFlag{Name: "reserve", Usage: "reserve a seat"},
		},
		Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
			departure, err := time.Parse(time.RFC3339Nano, c.String("departure"))
			if err != nil {
				return fmt.Errorf("invalid --departure: %w", err)
			}
			purchase, err := s.traits.BuyTicket(ctx, c.String("email"), &services.Connection{
				TrainID:       c.String("train"),
				DepartureTime: departure,
			}, c.Bool("reserve"))
			if err != nil {
				return err
			}
			return printJSON(purchase)
		}),
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the ledger, graph and Authorizer",
		Action: withSession(func(ctx context.Context, c *cli.Command, s *session) error {
			result := services.HealthCheck(s.cfg, s.traits.AppDB, s.graph)
			if err := printJSON(result); err != nil {
				return err
			}
			if result.Status != "healthy" {
				return fmt.Errorf("unhealthy: %s", result.ErrorMessage)
			}
			return nil
		}),
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
