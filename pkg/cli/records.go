package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/store"
)

var reportCommand = &cli.Command{
	Name:      "report",
	Usage:     "Repair and regenerate session reports",
	ArgsUsage: "<report-dir>...",
	Description: `Attempts left running by a crashed session are marked failed, the
summary is recomputed, and the JUnit and HTML views are written again.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "title",
			Usage: "HTML report title",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("at least one report directory is required")
		}
		for _, dir := range c.Args().Slice() {
			changed, err := report.Recover(dir)
			if err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}
			if err := report.GenerateJUnit(dir); err != nil {
				return err
			}
			if err := report.GenerateHTML(dir, report.HTMLConfig{Title: c.String("title")}); err != nil {
				return err
			}
			r, err := report.ReadReport(dir)
			if err != nil {
				return err
			}
			note := ""
			if changed {
				note = " (recovered)"
			}
			fmt.Printf("%s: %s, %d of %d requested%s\n", dir, r.Status, r.Summary.Succeeded, r.Summary.Requested, note)
		}
		return nil
	},
}

// openStore loads the configuration and opens the document store.
func openStore(c *cli.Context) (*store.Store, func(), error) {
	e, err := setup(c)
	if err != nil {
		return nil, nil, err
	}
	return store.Open(e.cfg.Storage.Dir), e.close, nil
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "Show or clear the purchase history and collected deliveries",
	Subcommands: []*cli.Command{
		{
			Name:  "purchases",
			Usage: "List purchased products",
			Action: func(c *cli.Context) error {
				st, done, err := openStore(c)
				if err != nil {
					return err
				}
				defer done()
				list, err := st.Purchased()
				if err != nil {
					return err
				}
				for _, p := range list {
					fmt.Printf("%s  %8s  %s\n", p.Date, "¥"+price.Format(p.Price), p.Text)
				}
				return nil
			},
		},
		{
			Name:  "deliveries",
			Usage: "List tracking numbers from the last delivery scan",
			Action: func(c *cli.Context) error {
				st, done, err := openStore(c)
				if err != nil {
					return err
				}
				defer done()
				list, err := st.Deliveries()
				if err != nil {
					return err
				}
				for _, d := range list {
					number := d.Number
					if number == "" {
						number = "-"
					}
					fmt.Printf("%-22s %-10s %s\n", number, d.Courier, d.Product)
				}
				return nil
			},
		},
		{
			Name:  "clear",
			Usage: "Forget every purchased product so it can be bought again",
			Action: func(c *cli.Context) error {
				st, done, err := openStore(c)
				if err != nil {
					return err
				}
				defer done()
				return st.ClearPurchased()
			},
		},
	},
}

var profileCommand = &cli.Command{
	Name:  "profile",
	Usage: "Show or replace the cached user profile",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "set",
			Usage: "Replace the profile with this JSON file",
		},
	},
	Action: func(c *cli.Context) error {
		st, done, err := openStore(c)
		if err != nil {
			return err
		}
		defer done()

		if path := c.String("set"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var p store.Profile
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("parse profile: %w", err)
			}
			p.Timestamp = st.Stamp()
			return st.SaveProfile(p)
		}

		p, ok, err := st.Profile()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no profile stored")
			return nil
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
