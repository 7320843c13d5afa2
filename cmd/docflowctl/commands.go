package main

import (
	"docflow/internal/broadcast"
	"docflow/internal/doccache"
	"docflow/internal/domain"
	"docflow/internal/session"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func loginCommand(c *cli) *cobra.Command {
	var username, organization string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in, registering the email on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.api("").Login(cmd.Context(), domain.LoginRequest{
				Email:        args[0],
				Username:     username,
				Organization: organization,
			})
			if err != nil {
				return err
			}

			c.session.SignIn(session.Identity{
				Email:        view.Email,
				Username:     view.Username,
				Organization: view.Organization,
				Token:        view.Token,
			})
			if err := c.store.Persist(c.sessionFile); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", view.Username, view.Organization)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name, defaults to the email local part")
	cmd.Flags().StringVar(&organization, "organization", "", "organization, defaults to the email domain")
	return cmd
}

func logoutCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.session.SignOut()
			return c.store.Persist(c.sessionFile)
		},
	}
}

func listCommand(c *cli) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the documents of your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := c.openCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeCache()

			cache.SetFilter(filter)
			cache.Load(cmd.Context())
			printDocuments(cmd.OutOrStdout(), cache.Documents())
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "status", domain.FilterAll, "only show documents with this status")
	return cmd
}

func createCommand(c *cli) *cobra.Command {
	var in doccache.CreateInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := c.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeCache()

			doc, err := cache.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "document title")
	cmd.Flags().StringVar(&in.Content, "content", "", "document body")
	cmd.Flags().StringVar(&in.Excerpt, "excerpt", "", "summary, derived from the content when empty")
	cmd.Flags().StringVar(&in.Type, "type", "", "document type")
	return cmd
}

func updateCommand(c *cli) *cobra.Command {
	var title, content, excerpt, status, docType, assignee string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a document, leaving the others as they are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.UpdateDocumentRequest{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("content") {
				req.Content = &content
			}
			if flags.Changed("excerpt") {
				req.Excerpt = &excerpt
			}
			if flags.Changed("status") {
				s := domain.Status(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				req.Status = &s
			}
			if flags.Changed("type") {
				req.Type = &docType
			}
			if flags.Changed("assign") {
				req.AssignedTo = &assignee
			}

			cache, closeCache, err := c.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeCache()

			doc, err := cache.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", doc.ID, doc.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	cmd.Flags().StringVar(&excerpt, "excerpt", "", "new summary")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&docType, "type", "", "new type")
	cmd.Flags().StringVar(&assignee, "assign", "", "user id of the approver")
	return cmd
}

func deleteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document with its comments and chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := c.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := cache.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func approveCommand(c *cli) *cobra.Command {
	var rating int
	var feedback string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a document assigned to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ratingPtr *int
			if cmd.Flags().Changed("rating") {
				if rating < 1 || rating > 5 {
					return fmt.Errorf("rating must be between 1 and 5")
				}
				ratingPtr = &rating
			}

			cache, closeCache, err := c.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeCache()

			doc, err := cache.Approve(cmd.Context(), args[0], ratingPtr, feedback)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", doc.ID, doc.Status)
			return nil
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&feedback, "feedback", "", "optional feedback")
	return cmd
}

func rejectCommand(c *cli) *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a document assigned to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := c.openCache(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeCache()

			doc, err := cache.Reject(cmd.Context(), args[0], feedback)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", doc.ID, doc.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "why the document is rejected (required)")
	return cmd
}

func watchCommand(c *cli) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow document changes made by other clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, closeCache, err := c.openCache(ctx, true)
			if err != nil {
				return err
			}
			defer closeCache()

			ch, err := cache.Listen(ctx)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", c.wsURL(), err)
			}
			cache.SetFilter(filter)
			cache.Load(ctx)

			out := cmd.OutOrStdout()
			printDocuments(out, cache.Documents())
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-ch:
					if !ok {
						return fmt.Errorf("connection to the server closed")
					}
					if !cache.Apply(ctx, msg) {
						continue
					}
					fmt.Fprintf(out, "\n%s\n", describe(msg.Data))
					printDocuments(out, cache.Documents())
				}
			}
		},
	}
	cmd.Flags().StringVar(&filter, "status", domain.FilterAll, "only show documents with this status")
	return cmd
}

func describe(p broadcast.Payload) string {
	switch p.Kind() {
	case broadcast.KindCreate:
		return "created " + p.NewDocument.ID
	case broadcast.KindUpdate:
		return "updated " + p.DocumentID
	case broadcast.KindDelete:
		return "deleted " + p.DocumentID
	default:
		return "reloaded"
	}
}

func printDocuments(out io.Writer, docs []domain.DocumentView) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tAUTHOR\tAPPROVER")
	for _, d := range docs {
		approver := "-"
		if d.AssignedTo != nil {
			approver = d.AssignedTo.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Title, d.Author.Name, approver)
	}
	w.Flush()
}
