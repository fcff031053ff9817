package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MY-Final/napcat-plugin-email/pkg/config"
	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

func newSendCommand() *cobra.Command {
	var (
		configPath string
		accountID  string
		to         string
		subject    string
		text       string
		htmlBody   string
		attach     []string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single email through a configured account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := system.NewLogger(false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			sugar := logger.Sugar()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			req := mail.SendRequest{
				AccountID: accountID,
				To:        to,
				Subject:   subject,
				Text:      text,
				HTML:      htmlBody,
			}
			for _, path := range attach {
				req.Attachments = append(req.Attachments, mail.Attachment{Path: path})
			}

			dispatcher := mail.NewDispatcher(cfg, sugar)
			res := dispatcher.Send(req)

			// One-shot sends are recorded like any other manual send.
			hist := history.NewLog(cfg.Storage.DataDir, sugar)
			status := history.StatusSuccess
			errMsg := ""
			if !res.Success {
				status = history.StatusFailed
				errMsg = res.Message
			}
			hist.Add(history.AddParams{
				SendType:     history.SendManual,
				AccountID:    accountID,
				To:           to,
				Subject:      subject,
				Text:         text,
				HTML:         htmlBody,
				Status:       status,
				ErrorMessage: errMsg,
			})

			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.Success {
				return fmt.Errorf("send failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config",
		getEnvString("NAPCAT_EMAIL_CONFIG_PATH", "./config.yaml"),
		"Path to the plugin configuration file")
	cmd.Flags().StringVar(&accountID, "account", "", "Mail account id (default account when empty)")
	cmd.Flags().StringVar(&to, "to", "", "Comma-separated recipient list")
	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&text, "text", "", "Plain-text body")
	cmd.Flags().StringVar(&htmlBody, "html", "", "HTML body")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "Attachment file path (repeatable)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
