package main

import (
	"fmt"
	"io"

	"echo-gateway/internal/signature"

	"github.com/spf13/cobra"
)

func signCmd() *cobra.Command {
	var socketID, channel, channelData string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the admission signature for a connection and channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return sign(cmd.OutOrStdout(), cfg.App.Key, socketID, channel, channelData)
		},
	}
	cmd.Flags().StringVar(&socketID, "socket-id", "", "connection id the signature is bound to")
	cmd.Flags().StringVar(&channel, "channel", "", "channel name")
	cmd.Flags().StringVar(&channelData, "channel-data", "", "serialized presence data, exactly as the client sends it")
	_ = cmd.MarkFlagRequired("socket-id")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func sign(out io.Writer, key, socketID, channel, channelData string) error {
	signer, err := signature.NewSigner(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, signer.Sign(socketID, channel, channelData))
	return err
}
