package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mwfern/vmdeck/internal/app"
	"github.com/mwfern/vmdeck/internal/cmdexec"
	"github.com/mwfern/vmdeck/internal/config"
	"github.com/mwfern/vmdeck/internal/device"
	"github.com/mwfern/vmdeck/internal/device/android"
	"github.com/mwfern/vmdeck/internal/device/ios"
	"github.com/mwfern/vmdeck/internal/logging"
	"github.com/mwfern/vmdeck/internal/logtail"
)

const headlessTimeout = 5 * time.Minute

func newRootCmd() *cobra.Command {
	var configPath, prefsPath string

	root := &cobra.Command{
		Use:   "vmdeck",
		Short: "Dashboard for Android emulators and iOS simulators",
		Long: `vmdeck manages Android emulators and iOS simulators from one
terminal dashboard. Run without arguments to open the dashboard, or use
the subcommands for scripting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The dashboard owns the terminal, so logs go to a file.
			if err := logging.InitializeFromEnv(true); err != nil {
				return err
			}
			defer logging.Sync()
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: configPath,
				PrefsPath:  prefsPath,
			})
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/vmdeck/config.toml)")
	root.Flags().StringVar(&prefsPath, "prefs", "", "preferences file path (default ~/.config/vmdeck/prefs.toml)")

	root.AddCommand(
		newListCmd(&configPath),
		newStartCmd(&configPath),
		newStopCmd(&configPath),
		newCreateCmd(&configPath),
		newDeleteCmd(&configPath),
		newWipeCmd(&configPath),
		newLogsCmd(),
	)
	return root
}

// managers builds the real platform backends for headless commands.
func managers(configPath string) (map[device.Platform]device.Manager, error) {
	if err := logging.InitializeFromEnv(false); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	runner := cmdexec.ExecRunner{}
	return map[device.Platform]device.Manager{
		device.Android: android.New(runner, cfg.AndroidSDKRoot),
		device.IOS:     ios.New(runner),
	}, nil
}

func managerFor(configPath, platform string) (device.Manager, error) {
	p, err := device.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	all, err := managers(configPath)
	if err != nil {
		return nil, err
	}
	m := all[p]
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !m.Available(ctx) {
		return nil, fmt.Errorf("%s tooling is not available on this machine", p)
	}
	return m, nil
}

func newListCmd(configPath *string) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices on both platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := managers(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), headlessTimeout)
			defer cancel()

			var only *device.Platform
			if platform != "" {
				p, err := device.ParsePlatform(platform)
				if err != nil {
					return err
				}
				only = &p
			}

			g, gctx := errgroup.WithContext(ctx)
			results := make([][]device.Device, 2)
			for p, m := range all {
				if only != nil && *only != p {
					continue
				}
				p, m := p, m
				g.Go(func() error {
					if !m.Available(gctx) {
						return nil
					}
					devs, err := m.List(gctx)
					if err != nil {
						return fmt.Errorf("list %s: %w", p, err)
					}
					results[p] = devs
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			// results is indexed by platform, so Android prints first.
			var devices []device.Device
			for _, devs := range results {
				devices = append(devices, devs...)
			}
			return printDevices(devices)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "limit to one platform (android or ios)")
	return cmd
}

func printDevices(devs []device.Device) error {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tID\tNAME\tSTATUS\tRUNTIME")
	for _, d := range devs {
		runtime := d.RuntimeVersion
		if d.Platform == device.Android && d.APILevel > 0 {
			runtime = "API " + strconv.Itoa(d.APILevel)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.Platform, d.ID, d.Name, d.Status, runtime)
	}
	return w.Flush()
}

// deviceOpCmd builds the shared shape of start/stop/delete/wipe.
func deviceOpCmd(configPath *string, use, short string, op func(context.Context, device.Manager, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <platform> <device-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := managerFor(*configPath, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), headlessTimeout)
			defer cancel()
			if err := op(ctx, m, args[1]); err != nil {
				return err
			}
			fmt.Printf("%s %s: ok\n", use, args[1])
			return nil
		},
	}
}

func newStartCmd(configPath *string) *cobra.Command {
	return deviceOpCmd(configPath, "start", "Start a device",
		func(ctx context.Context, m device.Manager, id string) error {
			return m.Start(ctx, id)
		})
}

func newStopCmd(configPath *string) *cobra.Command {
	return deviceOpCmd(configPath, "stop", "Stop a device",
		func(ctx context.Context, m device.Manager, id string) error {
			return m.Stop(ctx, id)
		})
}

func newDeleteCmd(configPath *string) *cobra.Command {
	return deviceOpCmd(configPath, "delete", "Delete a device",
		func(ctx context.Context, m device.Manager, id string) error {
			return m.Delete(ctx, id)
		})
}

func newWipeCmd(configPath *string) *cobra.Command {
	return deviceOpCmd(configPath, "wipe", "Erase a device's user data",
		func(ctx context.Context, m device.Manager, id string) error {
			return m.Wipe(ctx, id)
		})
}

func newLogsCmd() *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of vmdeck's diagnostic log",
		Long: `Print the tail of vmdeck's own diagnostic log file. Diagnostics are
only written when ` + logging.LogLevelEnvVar + ` is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.FilePath()
			if err != nil {
				return err
			}
			out, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}
			for _, line := range logtail.Filter(out, level) {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 200, "number of lines from the end (0 for the whole file)")
	cmd.Flags().StringVar(&level, "level", "", "only show lines at this level (debug, info, warn, error)")
	return cmd
}

func newCreateCmd(configPath *string) *cobra.Command {
	var (
		platform   string
		name       string
		deviceType string
		version    string
		ramMB      int
		storageMB  int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new device",
		Example: `  vmdeck create --platform android --name "Pixel 8 API 34" --type pixel_8 --version 34
  vmdeck create --platform ios --name "iPhone 15" --type "iPhone 15" --version <runtime-id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := managerFor(*configPath, platform)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), headlessTimeout)
			defer cancel()

			cfg := device.CreateConfig{
				Name:          name,
				DeviceType:    deviceType,
				Version:       version,
				RAMSizeMB:     ramMB,
				StorageSizeMB: storageMB,
			}
			if err := m.Create(ctx, cfg); err != nil {
				return err
			}
			fmt.Printf("created %q\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "android", "platform (android or ios)")
	cmd.Flags().StringVar(&name, "name", "", "device name")
	cmd.Flags().StringVar(&deviceType, "type", "", "device type id (see the create form in the dashboard)")
	cmd.Flags().StringVar(&version, "version", "", "system image API level or iOS runtime id")
	cmd.Flags().IntVar(&ramMB, "ram", 0, "RAM in MB (android only, 0 uses the config default)")
	cmd.Flags().IntVar(&storageMB, "storage", 0, "storage in MB (android only, 0 uses the config default)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
