package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
	"github.com/ApolloMedTech/HealthcareRecords/internal/render"
)

// run executes the CLI and always releases what setup acquired.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if terr := a.teardown(); err == nil {
		err = terr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "healthcare",
		Short:         "Read and write medical records on the healthcare records contract",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: search config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(connectCmd(a))
	rootCmd.AddCommand(authorizeProviderCmd(a))
	rootCmd.AddCommand(addRecordCmd(a))
	rootCmd.AddCommand(recordsCmd(a))

	return rootCmd
}

func connectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and show the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			snap, err := a.gw.Connect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Connection(snap))
			return nil
		},
	}
}

func authorizeProviderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize-provider <address>",
		Short: "Authorize a provider to add records (contract owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			snap, err := a.gw.Connect(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, render.Connection(snap))

			// O contrato decide; aqui apenas avisamos.
			if !snap.IsOwner {
				fmt.Fprintln(out, render.Warning("This account is not the contract owner; the contract will most likely reject the request."))
			}

			if err := a.gw.AuthorizeProvider(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out, render.Success("Provider authorized: "+args[0]))
			return nil
		},
	}
}

func addRecordCmd(a *app) *cobra.Command {
	var rec gateway.NewRecord

	cmd := &cobra.Command{
		Use:   "add-record",
		Short: "Add a medical record for a patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			snap, err := a.gw.Connect(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, render.Connection(snap))

			if err := a.gw.AddRecord(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintln(out, render.Success(fmt.Sprintf("Record added for patient %d", rec.PatientID)))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&rec.PatientID, "patient-id", 0, "Patient ID")
	cmd.Flags().StringVar(&rec.PatientName, "name", "", "Patient name")
	cmd.Flags().StringVar(&rec.Diagnosis, "diagnosis", "", "Diagnosis")
	cmd.Flags().StringVar(&rec.Treatment, "treatment", "", "Treatment")
	_ = cmd.MarkFlagRequired("patient-id")

	return cmd
}

func recordsCmd(a *app) *cobra.Command {
	var utc bool

	cmd := &cobra.Command{
		Use:   "records <patient-id>",
		Short: "List the records of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid patient id %q: must be a non-negative integer", args[0])
			}

			if err := a.setup(); err != nil {
				return err
			}
			if _, err := a.gw.Connect(cmd.Context()); err != nil {
				return err
			}

			records, err := a.gw.GetPatientRecords(cmd.Context(), patientID)
			if err != nil {
				return err
			}

			loc := time.Local
			if utc {
				loc = time.UTC
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Records(records, loc))
			return nil
		},
	}

	cmd.Flags().BoolVar(&utc, "utc", false, "Show timestamps in UTC instead of local time")
	return cmd
}
