/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/madrasiot/trackd/common"
	"github.com/madrasiot/trackd/daemon/webd"
	"github.com/madrasiot/trackd/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var optHTTPAddr string
var optAssetsPath string
var optSampleInterval time.Duration
var optSampleDedupe bool

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long:  `Serves the tracker dashboard and the detection API`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("webd.Run")
		config := params.DefaultWebDaemonConfig()
		config.ListenerConfig = params.ListenerConfig{
			Network: "tcp",
			Address: optHTTPAddr,
		}
		config.AssetsPath = optAssetsPath
		config.Sampler.Interval = optSampleInterval
		config.Sampler.Dedupe = optSampleDedupe

		server := webd.NewWebDaemon(config)
		go func() {
			sig := <-common.Interrupted()
			slog.Info("webd interrupted", "signal", sig)
			server.Stop()
			os.Exit(0)
		}()
		if err := server.Run(); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	samplerFlags := pflag.NewFlagSet("webd.sampler", pflag.ContinueOnError)
	samplerFlags.DurationVar(&optSampleInterval, "sample-interval", defaults.Sampler.Interval,
		"Background device poll interval (0 disables; ingestion is then driven by GET /api/location)")
	samplerFlags.BoolVar(&optSampleDedupe, "sample-dedupe", defaults.Sampler.Dedupe,
		"Drop repeated identical fixes polled by the background sampler")

	pFlags := webdCmd.PersistentFlags()
	pFlags.AddFlagSet(samplerFlags)
	pFlags.StringVar(&optHTTPAddr, "address", defaults.Address, "HTTP address to listen on")
	pFlags.StringVar(&optAssetsPath, "assets", defaults.AssetsPath, "Path to the dashboard index.html")
}
