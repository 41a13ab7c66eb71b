package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/outreach/internal/auth"
)

func hashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an API key for server.api_key_hash, generating one when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				if key, err = auth.GenerateKey(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "key:  %s\n", key)
			}

			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", hash)
			return nil
		},
	}
}
