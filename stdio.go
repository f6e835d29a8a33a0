package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
)

// ===== stdio transport =====

// maxStdioLine bounds a single request line; generous enough for any tool
// call but keeps a runaway writer from exhausting memory.
const maxStdioLine = 4 * 1024 * 1024

// runStdioServer reads newline-delimited JSON-RPC from in and writes one
// response line per request to out. Requests are handled serially in
// arrival order. Malformed lines are logged and skipped without a reply,
// and EOF ends the loop cleanly.
func runStdioServer(ctx context.Context, gw *Gateway, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLine)
	writer := bufio.NewWriter(out)

	log.Println("<stdio> ready")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req jsonrpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Printf("<stdio> skipping malformed line: %v", err)
			continue
		}

		authToken := extractParamsToken(&req)
		resp := gw.dispatchWithBudget(ctx, &req, authToken)
		if resp == nil {
			continue
		}

		data, err := json.Marshal(resp)
		if err != nil {
			log.Printf("<stdio> marshal response: %v", err)
			continue
		}
		if _, err := fmt.Fprintf(writer, "%s\n", data); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Println("<stdio> input closed, exiting")
	return nil
}
