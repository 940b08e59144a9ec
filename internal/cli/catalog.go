package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/iterenrich/pkg/catalog"
	"github.com/matzehuels/iterenrich/pkg/geneset"
)

// catalogCommand creates the library catalog command.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the catalog of libraries and backgrounds",
		Long: `Manage the catalog of libraries and backgrounds.

The catalog names library and background files so analyses can refer to them
with --library-name and --background-name. Active libraries are used when an
analysis names none.`,
	}

	cmd.AddCommand(c.catalogListCommand())
	cmd.AddCommand(c.catalogAddCommand())
	cmd.AddCommand(c.catalogActivateCommand(true))
	cmd.AddCommand(c.catalogActivateCommand(false))

	return cmd
}

// catalogListCommand creates the "catalog list" subcommand.
func (c *CLI) catalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, path, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			if len(cat.Libraries) == 0 && len(cat.Backgrounds) == 0 {
				printInfo("Catalog is empty")
				printDetail("File: %s", path)
				return nil
			}

			if len(cat.Libraries) > 0 {
				rows := make([][]string, 0, len(cat.Libraries))
				for _, l := range cat.Libraries {
					rows = append(rows, []string{l.Name, yesNo(l.Active), l.File, l.Description})
				}
				fmt.Println(StyleTitle.Render("Libraries"))
				fmt.Println(catalogTable([]string{"Name", "Active", "File", "Description"}, rows))
			}
			if len(cat.Backgrounds) > 0 {
				rows := make([][]string, 0, len(cat.Backgrounds))
				for _, b := range cat.Backgrounds {
					rows = append(rows, []string{b.Name, yesNo(b.Default), b.File})
				}
				fmt.Println(StyleTitle.Render("Backgrounds"))
				fmt.Println(catalogTable([]string{"Name", "Default", "File"}, rows))
			}
			printDetail("File: %s", path)
			return nil
		},
	}
}

// catalogAddCommand creates the "catalog add" subcommand.
func (c *CLI) catalogAddCommand() *cobra.Command {
	var (
		description string
		inactive    bool
		background  bool
		isDefault   bool
	)

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add or replace a library (or background) file",
		Long: `Add or replace a library file in the catalog. The file is read once to check
it and to take its name. With --background the file is registered as a
background gene list instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, path, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			file, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			if background {
				bg, _, err := geneset.ReadBackgroundFile(file)
				if err != nil {
					return err
				}
				if err := cat.AddBackground(catalog.Background{Name: bg.Name(), File: file, Default: isDefault}); err != nil {
					return err
				}
				if err := cat.Save(path); err != nil {
					return err
				}
				printSuccess("Added background %s (%d genes)", StyleValue.Render(bg.Name()), bg.Size())
				return nil
			}

			lib, err := geneset.ReadLibraryFile(file)
			if err != nil {
				return err
			}
			entry := catalog.Library{Name: lib.Name(), File: file, Description: description, Active: !inactive}
			if err := cat.AddLibrary(entry); err != nil {
				return err
			}
			if err := cat.Save(path); err != nil {
				return err
			}
			printSuccess("Added library %s (%d terms, %d genes)", StyleValue.Render(lib.Name()), lib.NumTerms(), lib.Size())
			printDetail("File: %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "library description")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add the library without activating it")
	cmd.Flags().BoolVar(&background, "background", false, "register a background instead of a library")
	cmd.Flags().BoolVar(&isDefault, "default", false, "make the background the default one")

	return cmd
}

// catalogActivateCommand creates the "catalog activate" or "catalog
// deactivate" subcommand.
func (c *CLI) catalogActivateCommand(active bool) *cobra.Command {
	use, short, verb := "activate", "Activate catalog libraries", "Activated"
	if !active {
		use, short, verb = "deactivate", "Deactivate catalog libraries", "Deactivated"
	}
	return &cobra.Command{
		Use:   use + " <name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, path, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := cat.SetActive(name, active); err != nil {
					return err
				}
			}
			if err := cat.Save(path); err != nil {
				return err
			}
			printSuccess("%s %s", verb, strings.Join(args, ", "))
			return nil
		},
	}
}

func catalogTable(headers []string, rows [][]string) string {
	return renderTable(headers, rows, func(int) bool { return false })
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
