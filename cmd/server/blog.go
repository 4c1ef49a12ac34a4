package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBlogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blog",
		Short: "Draft and publish blog posts",
	}
	cmd.AddCommand(newBlogGenerateCmd())
	cmd.AddCommand(newBlogPublishCmd())
	return cmd
}

func newBlogGenerateCmd() *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a post for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, err := rt.requireContent(ctx)
			if err != nil {
				return err
			}
			post, err := svc.GenerateDraft(ctx, topic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "draft saved: %s (%s)\n", post.Slug, post.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "post idea; a pool topic is picked when empty")
	return cmd
}

func newBlogPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish every approved post and share it on LinkedIn",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, err := rt.requireContent(ctx)
			if err != nil {
				return err
			}
			published, err := svc.PublishApproved(ctx)
			for _, slug := range published {
				fmt.Fprintf(cmd.OutOrStdout(), "published: %s\n", svc.PostURL(slug))
			}
			if err != nil {
				rt.log.Error("some posts failed to publish", zap.Error(err))
				return err
			}
			if len(published) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no approved posts")
			}
			return nil
		},
	}
}
