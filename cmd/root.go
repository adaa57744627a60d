/*
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


// Package cmd implements the secretfed command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/feature"

	// all secret store providers.
	_ "github.com/secretfed/secretfed/pkg/register"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")

	loglevel    string
	zapTimeEnc  string
	metricsAddr string
	healthAddr  string
)

const (
	errCreateController = "unable to create controller"
	errCreateManager    = "unable to start manager"
)

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
	_ = sfv1alpha1.AddToScheme(scheme)
}

var rootCmd = &cobra.Command{
	Use:   "secretfed",
	Short: "synchronizes secrets from external stores using federated workload credentials",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogger()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// setupLogger wires the zap backed logr logger into controller-runtime and klog.
func setupLogger() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(loglevel)); err != nil {
		return fmt.Errorf("invalid loglevel %q: %w", loglevel, err)
	}
	var enc zapcore.TimeEncoder
	if err := enc.UnmarshalText([]byte(zapTimeEnc)); err != nil {
		return fmt.Errorf("invalid zap-time-encoding %q: %w", zapTimeEnc, err)
	}
	logger := zap.New(zap.Level(lvl), zap.UseDevMode(false), func(o *zap.Options) {
		o.TimeEncoder = enc
	})
	ctrl.SetLogger(logger)
	klog.SetLogger(logger)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&loglevel, "loglevel", "info", "loglevel to use, one of: debug, info, warn, error, dpanic, panic, fatal")
	rootCmd.PersistentFlags().StringVar(&zapTimeEnc, "zap-time-encoding", "epoch", "Zap time encoding (one of 'epoch', 'millis', 'nano', 'iso8601', 'rfc3339' or 'rfc3339nano')")
	feature.AddFlags(rootCmd.PersistentFlags())
}
