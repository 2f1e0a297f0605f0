package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/papercomputeco/hookchat/pkg/logger"
	"github.com/papercomputeco/hookchat/pkg/mockhook"
)

func main() {
	// Parse command line flags
	listenAddr := flag.String("listen", ":5678", "Address to listen on")
	path := flag.String("path", "/webhook/hookchat", "Path that accepts webhook POSTs")
	replyPrefix := flag.String("reply-prefix", "echo: ", "Prefix added to echoed replies")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Set up logger
	logger := logger.NewLogger(*debug)
	defer logger.Sync()

	logger.Info("hookchat mock webhook starting",
		zap.String("listen", *listenAddr),
		zap.String("path", *path),
		zap.Bool("debug", *debug),
	)

	s := mockhook.New(mockhook.Config{
		ListenAddr:  *listenAddr,
		Path:        *path,
		ReplyPrefix: *replyPrefix,
	}, logger)

	if err := s.Run(); err != nil {
		logger.Fatal("mock webhook failed", zap.Error(err))
	}
}
