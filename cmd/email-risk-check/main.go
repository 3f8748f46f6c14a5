package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/email-risk/internal/adapters/gateway"
	"github.com/mikey/email-risk/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(logger *zap.Logger, cli *gateway.CLIGateway) error {
		defer logger.Sync()
		return run(logger, cli, flags)
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cli *gateway.CLIGateway, flags *di.CLIFlags) error {
	addresses := flags.Addresses
	if len(addresses) == 0 {
		var input io.Reader
		if flags.InputFile != "" {
			file, err := os.Open(flags.InputFile)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer file.Close()
			input = file
			logger.Info("Reading addresses from file", zap.String("file", flags.InputFile))
		} else {
			input = os.Stdin
			logger.Info("Reading addresses from stdin")
		}

		var err error
		addresses, err = readAddresses(input)
		if err != nil {
			return err
		}
	}

	if len(addresses) == 0 {
		return fmt.Errorf("no addresses to check")
	}

	ctx := context.Background()
	for _, address := range addresses {
		if _, err := cli.Check(ctx, address); err != nil {
			return err
		}
	}
	return nil
}

// readAddresses returns the non-blank, non-comment lines of r
func readAddresses(r io.Reader) ([]string, error) {
	var addresses []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read addresses: %w", err)
	}
	return addresses, nil
}
