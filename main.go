package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", envString("GENERAL_MCP_CONFIG", defaultConfigPath()), "path to the gateway config file")
	overridesPath := flag.String("tool-overrides", envString("GENERAL_MCP_TOOL_OVERRIDES", ""), "path to a tool override file, re-read on SIGHUP")
	stdioMode := flag.Bool("stdio", false, "serve JSON-RPC over stdin/stdout instead of HTTP")
	flag.Parse()

	// a missing .env is the normal case in production
	if err := godotenv.Load(); err == nil {
		log.Println("<main> loaded environment from .env")
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("<main> load config: %v", err)
	}

	creds := credentialsFromEnv()
	gw := newGateway(config, creds)

	log.Printf("<main> %s v%s, %d tools registered", config.Server.Name, config.Server.Version, gw.registry.size())

	ctx := context.Background()
	if *overridesPath != "" {
		if err := gw.reloadOverridesFromFile(*overridesPath); err != nil {
			log.Fatalf("<main> load tool overrides: %v", err)
		}
		watchOverrideReloads(ctx, gw, *overridesPath)
	}
	if *stdioMode {
		// structured logs go to stderr so stdout stays a clean protocol stream
		log.SetOutput(os.Stderr)
		if err := runStdioServer(ctx, gw, os.Stdin, os.Stdout); err != nil {
			log.Fatalf("<main> stdio server: %v", err)
		}
		return
	}

	if err := startHTTPServer(ctx, gw); err != nil {
		log.Fatalf("<main> http server: %v", err)
	}
}
