// mail-triage reports how the gateway would treat a single raw email:
// which gate it would stop at, and optionally the reply it would get.
// It never sends mail and never touches the dedup store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"github.com/calder/reply-gateway/internal/classifier"
	"github.com/calder/reply-gateway/internal/config"
	"github.com/calder/reply-gateway/internal/core"
	"github.com/calder/reply-gateway/internal/di"
	"github.com/calder/reply-gateway/internal/policy"
	"github.com/calder/reply-gateway/internal/textutil"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(triage); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func triage(
	logger *zap.Logger,
	cfg *config.Config,
	tbl *policy.Table,
	replyComposer core.ReplyComposer,
	flags *di.CLIFlags,
) error {
	defer logger.Sync()

	msg, err := readMessage(flags.InputFile, cfg.GetGateway().MaxBodyBytes)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Message ===\n")
	fmt.Printf("From: %s\n", msg.From)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))
	fmt.Printf("Fingerprint: %s\n", core.Fingerprint(msg.From))

	fmt.Printf("\n=== Disposition ===\n")
	selfAddress := cfg.GetGateway().SelfAddress
	cls := classifier.Classify(msg.From, msg.Subject, msg.Body, selfAddress, tbl)
	if cls.Automated {
		fmt.Printf("Outcome: %s\n", core.ActionIgnoredAutomated)
		fmt.Printf("Reason: %s\n", cls.Reason)
		return nil
	}
	fmt.Printf("Classifier: not automated\n")

	if !classifier.IsOnTopic(msg.Subject, msg.Body, tbl.Topics) {
		fmt.Printf("Outcome: %s\n", core.ActionIgnoredOffTopic)
		return nil
	}
	fmt.Printf("Topic filter: on-topic\n")
	fmt.Printf("Outcome: would reply (dedup state not consulted)\n")

	if flags.Compose {
		fmt.Printf("\n=== Reply ===\n")
		start := time.Now()
		reply, usedFallback := replyComposer.Compose(context.Background(), msg)
		fmt.Printf("Used fallback: %t\n", usedFallback)
		fmt.Printf("Composed in: %v\n", time.Since(start))
		fmt.Printf("\n%s\n", reply)
	}

	return nil
}

// readMessage parses a raw RFC 822 message from the given file or stdin.
func readMessage(inputFile string, maxBodyBytes int) (*core.Message, error) {
	var reader io.Reader
	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
	} else {
		reader = os.Stdin
	}

	parsed, err := mail.ReadMessage(bufio.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	from := parsed.Header.Get("From")
	addr := from
	if a, err := mail.ParseAddress(from); err == nil {
		addr = a.Address
	}

	bodyBytes, err := io.ReadAll(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read email body: %w", err)
	}

	return &core.Message{
		From:       addr,
		RawFrom:    from,
		Subject:    parsed.Header.Get("Subject"),
		Body:       textutil.Clean(string(bodyBytes), maxBodyBytes),
		ReceivedAt: time.Now(),
	}, nil
}
