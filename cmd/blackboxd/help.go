package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagDir     string
	flagListen  string
	flagHelp    bool
	flagVersion bool
)

func init() {
	flag.StringVarP(&flagDir, "dir", "d", ".", "Recordings directory")
	flag.StringVarP(&flagListen, "listen", "l", ":8330", "Viewer websocket listen address")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Multi-channel dashcam blackbox playback daemon

Usage: blackboxd [OPTION]...

Playback:
  -d, --dir=PATH         Recordings directory to scan (default: .)

Viewer:
  -l, --listen=ADDR      Websocket listen address (default: :8330)

Miscellaneous:
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	b := color.New(color.FgCyan)

	r.Println("  _     _            _    _")
	b.Println(" | |__ | | __ _  ___| | _| |__   _____  __")
	r.Println(" | '_ \\| |/ _` |/ __| |/ / '_ \\ / _ \\ \\/ /")
	b.Println(" | |_) | | (_| | (__|   <| |_) | (_) >  <")
	r.Println(" |_.__/|_|\\__,_|\\___|_|\\_\\_.__/ \\___/_/\\_\\")

	fmt.Println(helpString)
}
