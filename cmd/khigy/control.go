package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1broseidon/khigy/internal/ipc"
)

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show compositor status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := ipc.NewClient().GetStatus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, status)
			}
			o := status.Output
			fmt.Fprintf(out, "backend:    %s\n", status.Backend)
			fmt.Fprintf(out, "seat:       %s\n", status.Seat)
			fmt.Fprintf(out, "output:     %s %dx%d@%d.%03dHz scale %d %s\n",
				o.Name, o.Width, o.Height, o.Refresh/1000, o.Refresh%1000, o.Scale, o.Transform)
			fmt.Fprintf(out, "clients:    %d\n", status.Clients)
			fmt.Fprintf(out, "toplevels:  %d\n", status.Toplevels)
			fmt.Fprintf(out, "popups:     %d\n", status.Popups)
			fmt.Fprintf(out, "frames:     %d\n", status.Frames)
			fmt.Fprintf(out, "placement:  %s\n", status.Placement)
			fmt.Fprintf(out, "uptime:     %s\n", status.Uptime)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func toplevelsCmd() *cobra.Command {
	var (
		asJSON bool
		appID  string
	)
	cmd := &cobra.Command{
		Use:   "toplevels",
		Short: "List mapped toplevels, bottom first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := ipc.NewClient().ListToplevelsByApp(appID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, data)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLIENT\tSURFACE\tGEOMETRY\tAPP_ID\tTITLE\tFOCUS")
			for _, t := range data.Toplevels {
				focus := ""
				if t.Focused {
					focus = "*"
				}
				fmt.Fprintf(tw, "%d\t%d\t%dx%d+%d+%d\t%s\t%s\t%s\n",
					t.Client, t.Surface, t.Width, t.Height, t.X, t.Y, t.AppID, t.Title, focus)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&appID, "app-id", "", "Only list toplevels with this app_id")
	return cmd
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the running compositor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ipc.NewClient().Quit(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "compositor stopping")
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
