package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/earthchat/earth/pkg/persona"
)

func newPersonasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Manage saved AI personas",
	}
	cmd.AddCommand(newPersonasListCommand())
	cmd.AddCommand(newPersonasTemplatesCommand())
	cmd.AddCommand(newPersonasSaveCommand())
	cmd.AddCommand(newPersonasDeleteCommand())
	cmd.AddCommand(newPersonasFavoriteCommand())
	return cmd
}

func newPersonasListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPersonaStore()
			if err != nil {
				return err
			}
			personas, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(personas) == 0 {
				fmt.Println("no saved personas, try `earth personas templates`")
				return nil
			}
			for _, p := range personas {
				star := " "
				if p.Favorite {
					star = "★"
				}
				fmt.Printf("%s %s  %s %s\n", star, p.ID, p.Icon, p.Name)
			}
			return nil
		},
	}
}

func newPersonasTemplatesCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "templates [query]",
		Short: "Browse built-in persona templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var templates []persona.Template
			switch {
			case len(args) > 0:
				templates = persona.SearchTemplates(args[0])
			case category != "":
				templates = persona.TemplatesByCategory(category)
			default:
				templates = persona.Templates()
			}
			for _, t := range templates {
				fmt.Printf("%s %s  %s — %s\n", t.Icon, t.ID, t.Name, t.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category (professional, creative, ...)")
	return cmd
}

func newPersonasSaveCommand() *cobra.Command {
	var name, instruction, icon, fromTemplate string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a persona, either custom or from a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPersonaStore()
			if err != nil {
				return err
			}

			p := persona.Persona{Name: name, Instruction: instruction, Icon: icon}
			if fromTemplate != "" {
				found := false
				for _, t := range persona.Templates() {
					if t.ID == fromTemplate {
						p = persona.Persona{
							Name:        t.Name,
							Instruction: t.Instruction,
							Category:    t.Category,
							Icon:        t.Icon,
						}
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("unknown template %q", fromTemplate)
				}
			}
			if p.Name == "" || p.Instruction == "" {
				return fmt.Errorf("either --from-template or both --name and --instruction are required")
			}

			saved, err := s.Save(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Printf("saved %s (%s)\n", saved.Name, saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "persona name")
	cmd.Flags().StringVar(&instruction, "instruction", "", "system instruction")
	cmd.Flags().StringVar(&icon, "icon", "", "icon shown in listings")
	cmd.Flags().StringVar(&fromTemplate, "from-template", "", "built-in template id to copy")
	return cmd
}

func newPersonasDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPersonaStore()
			if err != nil {
				return err
			}
			return s.Delete(cmd.Context(), args[0])
		},
	}
}

func newPersonasFavoriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle a persona's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openPersonaStore()
			if err != nil {
				return err
			}
			fav, err := s.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if fav {
				fmt.Println("marked as favorite")
			} else {
				fmt.Println("removed from favorites")
			}
			return nil
		},
	}
}
