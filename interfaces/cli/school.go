package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nosql/domain/school"
)

// newSchoolCmd creates the school command group.
func (a *App) newSchoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "school",
		Short: "Insert, update and list school documents in MongoDB",
	}

	cmd.AddCommand(
		a.newSchoolInsertCmd(),
		a.newSchoolUpdateTopicsCmd(),
		a.newSchoolListCmd(),
	)
	return cmd
}

func (a *App) newSchoolInsertCmd() *cobra.Command {
	var fields map[string]string

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert a school document and print its _id",
		Long: `Insert a document built from the given fields and print its _id.

Example:
  nosql school insert --field name=UCSF --field address="505 Parnassus Ave"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schools, release, err := a.openSchools(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			doc := make(map[string]any, len(fields))
			for k, v := range fields {
				doc[k] = v
			}

			id, err := schools.InsertSchool(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, formatID(id))
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&fields, "field", nil, "Document field (key=value), repeatable")
	return cmd
}

func (a *App) newSchoolUpdateTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-topics NAME [TOPIC...]",
		Short: "Set the topics of every school named NAME",
		Long: `Replace the topics of every school whose name is NAME. Without topics the
list is cleared.

Example:
  nosql school update-topics "Holberton school" "Sys admin" "AI" "Algorithm"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schools, release, err := a.openSchools(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			n, err := schools.UpdateTopics(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "matched %d\n", n)
			return nil
		},
	}
}

func (a *App) newSchoolListCmd() *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schools, optionally only those approaching a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schools, release, err := a.openSchools(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			var list []school.School
			if topic != "" {
				list, err = schools.SchoolsByTopic(cmd.Context(), topic)
			} else {
				list, err = schools.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			for _, s := range list {
				fmt.Fprintf(a.stdout, "[%s] %s", formatID(s.ID), s.Name)
				if len(s.Topics) > 0 {
					fmt.Fprintf(a.stdout, " (%s)", strings.Join(s.Topics, ", "))
				}
				fmt.Fprintln(a.stdout)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Only list schools approaching this topic")
	return cmd
}

// formatID renders an ObjectID as hex and anything else with %v.
func formatID(id any) string {
	if h, ok := id.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	return fmt.Sprint(id)
}
