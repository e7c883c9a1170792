package common

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner followed by the settings the
// command runs with. mode is "serve" or "batch".
func PrintBanner(w io.Writer, config *Config, mode string) {
	banner.Print("SeoForge", GetVersion())

	rows := [][2]string{{"mode", mode}}
	if mode == "serve" {
		rows = append(rows, [2]string{"address", net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))})
	}
	rows = append(rows,
		[2]string{"provider", string(config.LLM.DefaultProvider)},
		[2]string{"topic", config.Batch.Topic},
		[2]string{"language", config.Batch.Language},
	)
	for _, row := range rows {
		fmt.Fprintf(w, "  %-9s %s\n", row[0], row[1])
	}
	fmt.Fprintln(w)
}
