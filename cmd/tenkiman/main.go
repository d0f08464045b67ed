// tenkiman はweather.com連携の天気パーソナルアシスタントAPIサーバー。
// サブコマンド: serve（デフォルト） / worker / migrate / healthcheck
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/tenkiman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
