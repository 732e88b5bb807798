package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/bridge/pkg/server"
	"github.com/cuemby/bridge/pkg/types"
)

var callCmd = &cobra.Command{
	Use:   "call METHOD [PARAMS_JSON]",
	Short: "Send a single request to a running bridge",
	Long: `Send one JSON request to a running bridge and print the response.

Examples:
  bridge call status
  bridge call eval '{"code":"40+2"}'
  bridge call subscribe '{"url":"http://localhost:9000/hook"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		params := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
				return fmt.Errorf("invalid params JSON: %v", err)
			}
		}

		resp, err := sendRequest(port, types.Request{Method: args[0], Params: params})
		if err != nil {
			return err
		}

		pretty, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))

		if !resp.OK {
			os.Exit(1)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		resp, err := sendRequest(port, types.Request{Method: "status"})
		if err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("status call failed: %s", resp.Error)
		}

		result, ok := resp.Result.(map[string]any)
		if !ok {
			return fmt.Errorf("unexpected status payload: %v", resp.Result)
		}

		fmt.Println("Bridge status:")
		fmt.Printf("  Port:          %v\n", result["port"])
		fmt.Printf("  Uptime:        %vs\n", result["uptimeSeconds"])
		fmt.Printf("  Workspace:     %v\n", result["workspace"])
		fmt.Printf("  Active editor: %v\n", result["activeEditor"])
		fmt.Printf("  Subscribers:   %v\n", result["subscribers"])
		if terminals, ok := result["terminals"].([]any); ok {
			fmt.Printf("  Terminals:     %d\n", len(terminals))
			for _, t := range terminals {
				if info, ok := t.(map[string]any); ok {
					fmt.Printf("    - %v (pid %v)\n", info["name"], info["processId"])
				}
			}
		}
		return nil
	},
}

func init() {
	callCmd.Flags().Int("port", server.DefaultPort, "Bridge port to connect to")
	statusCmd.Flags().Int("port", server.DefaultPort, "Bridge port to connect to")
}

// sendRequest performs the one-exchange client side: dial, write the
// request, read the single response, close.
func sendRequest(port int, req types.Request) (types.Response, error) {
	var resp types.Response

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 5*time.Second)
	if err != nil {
		return resp, fmt.Errorf("failed to connect to bridge on port %d: %w", port, err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}
	if _, err := conn.Write(data); err != nil {
		return resp, fmt.Errorf("failed to send request: %w", err)
	}

	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}
