package main

import (
	"fmt"
	"os"

	"github.com/ncobase/ohsmetrics/cmd/ohsmetrics/commands"

	// survey data providers
	_ "github.com/ncobase/ohsmetrics/data/memory"
	_ "github.com/ncobase/ohsmetrics/data/mongodb"
	_ "github.com/ncobase/ohsmetrics/data/mysql"
	_ "github.com/ncobase/ohsmetrics/data/postgres"
	_ "github.com/ncobase/ohsmetrics/data/sqlite"

	// write event sources
	_ "github.com/ncobase/ohsmetrics/events/kafka"
	_ "github.com/ncobase/ohsmetrics/events/rabbitmq"
	_ "github.com/ncobase/ohsmetrics/events/redis"

	// log sinks
	_ "github.com/ncobase/ohsmetrics/logging/hooks/elasticsearch"
	_ "github.com/ncobase/ohsmetrics/logging/hooks/meilisearch"
	_ "github.com/ncobase/ohsmetrics/logging/hooks/opensearch"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
