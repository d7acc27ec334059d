package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"cert_registry/internal/client"
	"cert_registry/internal/domain"
	"cert_registry/internal/identity"
	"cert_registry/internal/registry"

	"github.com/spf13/cobra"
)

func newConnectCmd(opts *options, open providerOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and show the role of the active account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, _ []string) error {
			state, err := a.connect(cmd.Context(), "")
			if err != nil {
				return err
			}
			printState(a, state)
			return nil
		}),
	}
}

func newWatchCmd(opts *options, open providerOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Connect and follow account and network changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, _ []string) error {
			sub := a.session.Watch()
			defer sub.Unsubscribe()

			state, err := a.connect(cmd.Context(), "")
			if err != nil {
				return err
			}
			printState(a, state)
			a.session.OnChange(func(s identity.State) { printState(a, s) })

			<-cmd.Context().Done()
			return nil
		}),
	}
}

func newSetAdminCmd(opts *options, open providerOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-admin <address>",
		Short: "Replace the admin address in the local settings (current admin only)",
		Long: `Stores a new admin address in the local settings file. The connected account
must be the current admin. Only this client is affected; the server keeps
its ADMIN_ADDRESS.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, args []string) error {
			return a.session.UpdateAdminAddress(cmd.Context(), args[0], a.settings)
		}),
	}
}

func newStudentCmd(opts *options, open providerOpener) *cobra.Command {
	var roll string
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Student panel: show the record of the connected wallet",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, _ []string) error {
			state, err := a.connect(cmd.Context(), identity.PanelStudent)
			if err != nil {
				return err
			}

			var student *domain.Student
			if roll != "" {
				student, err = a.api.GetStudent(cmd.Context(), roll)
			} else {
				student, err = a.api.GetStudentByWallet(cmd.Context(), state.Address)
			}
			if client.IsNotFound(err) {
				fmt.Fprintln(a.out, "No student record found.")
				return nil
			}
			if err != nil {
				return err
			}
			printStudent(a, student)
			return nil
		}),
	}
	cmd.Flags().StringVar(&roll, "roll", "", "look up by roll number instead of wallet address")
	return cmd
}

func newAdminCmd(opts *options, open providerOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin panel: register students and upload certificates",
	}
	cmd.AddCommand(newAdminAddCmd(opts, open), newAdminUploadCmd(opts, open), newAdminListCmd(opts, open))
	return cmd
}

func newAdminAddCmd(opts *options, open providerOpener) *cobra.Command {
	var in registry.NewStudent
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a student",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, _ []string) error {
			state, err := a.connect(cmd.Context(), identity.PanelAdmin)
			if err != nil {
				return err
			}
			student, err := a.api.WithWallet(state.Address).CreateStudent(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Student registered.")
			printStudent(a, student)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "student name")
	f.StringVar(&in.RollNumber, "roll", "", "roll number")
	f.StringVar(&in.Department, "department", "", "department")
	f.IntVar(&in.AdmissionYear, "year", 0, "admission year")
	f.StringVar(&in.WalletAddress, "wallet", "", "student wallet address")
	return cmd
}

func newAdminUploadCmd(opts *options, open providerOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <roll-number> <file.pdf>",
		Short: "Upload the certificate of a student",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, args []string) error {
			state, err := a.connect(cmd.Context(), identity.PanelAdmin)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			student, err := a.api.WithWallet(state.Address).UploadCertificate(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Certificate uploaded.")
			printStudent(a, student)
			return nil
		}),
	}
}

func newAdminListCmd(opts *options, open providerOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered students",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, open, func(cmd *cobra.Command, a *app, _ []string) error {
			if _, err := a.connect(cmd.Context(), identity.PanelAdmin); err != nil {
				return err
			}
			students, err := a.api.ListStudents(cmd.Context())
			if err != nil {
				return err
			}
			if len(students) == 0 {
				fmt.Fprintln(a.out, "No students registered.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROLL\tNAME\tDEPARTMENT\tYEAR\tWALLET\tCERTIFICATE")
			for _, s := range students {
				cert := "-"
				if s.HasCertificate() {
					cert = *s.CertificateURL
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", s.RollNumber, s.Name, s.Department, s.AdmissionYear, s.WalletAddress, cert)
			}
			return tw.Flush()
		}),
	}
}

func printState(a *app, s identity.State) {
	if !s.Connected {
		fmt.Fprintln(a.out, "Disconnected.")
		return
	}
	fmt.Fprintf(a.out, "Address: %s\nRole:    %s\nPanel:   %s\n", s.Address, s.Role, s.Panel())
}

func printStudent(a *app, s *domain.Student) {
	fmt.Fprintf(a.out, "Name:        %s\n", s.Name)
	fmt.Fprintf(a.out, "Roll number: %s\n", s.RollNumber)
	fmt.Fprintf(a.out, "Department:  %s\n", s.Department)
	fmt.Fprintf(a.out, "Admitted:    %d\n", s.AdmissionYear)
	fmt.Fprintf(a.out, "Wallet:      %s\n", s.WalletAddress)
	if s.HasCertificate() {
		fmt.Fprintf(a.out, "Certificate: %s\n", a.api.CertificateURL(s))
	} else {
		fmt.Fprintln(a.out, "Certificate: not uploaded yet")
	}
}
