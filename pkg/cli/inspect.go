package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cartpilot/pkg/device"
	"github.com/devicelab-dev/cartpilot/pkg/logger"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

var classifyCommand = &cli.Command{
	Name:  "classify",
	Usage: "Print the kind of page currently shown",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "explain",
			Usage: "Also print the anchors every rule matched",
		},
		&cli.StringFlag{
			Name:  "expect",
			Usage: "Exit non-zero unless the page is this kind (may scroll up to find anchors)",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()

		ctx := context.Background()
		cn, err := connect(ctx, e.cfg, e.serials()[0], e.cfg.Device.HostPort, e.log)
		if err != nil {
			return err
		}
		defer cn.close()

		ctrl := session.New(logger.For("session"))
		cls := page.NewClassifier(cn.driver, e.live, ctrl, logger.For("page"))

		if want := c.String("expect"); want != "" {
			kind := page.ParseKind(want)
			if kind == page.Unknown {
				return fmt.Errorf("unknown page kind %q", want)
			}
			if !cls.Is(ctx, kind) {
				return cli.Exit(fmt.Sprintf("page is %s, not %s", cls.ClassifyOnce(ctx), kind), 1)
			}
			fmt.Println(kind)
			return nil
		}

		fmt.Println(cls.ClassifyOnce(ctx))
		if !c.Bool("explain") {
			return nil
		}
		elems, err := cn.driver.Snapshot(ctx)
		if err != nil {
			return err
		}
		w, h := cn.driver.ScreenSize()
		v := page.NewView(elems, w, h)
		for _, r := range page.Rules(e.cfg.Labels) {
			ok, matched := r.Evaluate(v)
			mark := " "
			if ok {
				mark = "*"
			}
			fmt.Printf("  %s %-20s %s\n", mark, r.Kind, strings.Join(matched, ", "))
		}
		return nil
	},
}

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Dump the UI hierarchy of the current screen as page-source XML",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to this file instead of stdout",
		},
	},
	Action: func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()

		ctx := context.Background()
		cn, err := connect(ctx, e.cfg, e.serials()[0], e.cfg.Device.HostPort, e.log)
		if err != nil {
			return err
		}
		defer cn.close()

		src, err := cn.driver.Hierarchy(ctx)
		if err != nil {
			return fmt.Errorf("read hierarchy: %w", err)
		}
		if out := c.String("output"); out != "" {
			return os.WriteFile(out, []byte(src), 0o644)
		}
		fmt.Println(src)
		return nil
	},
}

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List Android devices attached to adb",
	Action: func(c *cli.Context) error {
		devices, err := device.ListDevices(context.Background())
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return device.ErrNoDevices
		}
		for _, d := range devices {
			fmt.Printf("%-24s %-12s %s\n", d.Serial, d.State, d.Type)
		}
		return nil
	},
}
