package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/app"
	"github.com/pictodon/pictodon/db"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/util"
)

func main() {
	versionFlag := flag.Bool("v", false, "Print version information")
	addUser := flag.String("adduser", "", "Create a local account with the given username and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("pictodon v%s\n", util.GetVersion())
		os.Exit(0)
	}

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	// Setup logging (journald if enabled, otherwise standard logging)
	util.SetupLogging(conf.Conf.WithJournald)

	if *addUser != "" {
		createAccount(*addUser)
		return
	}

	log.Println(util.GetNameAndVersion())
	log.Println("Configuration: ")
	log.Println(util.PrettyPrint(conf))

	if conf.Conf.WithPprof {
		go func() {
			log.Println("pprof server listening on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	application, err := app.New(conf)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Initialize(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Blocks until shutdown signal
	if err := application.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func createAccount(username string) {
	if valid, reason := util.IsValidWebFingerUsername(username); !valid {
		log.Fatalf("Invalid username %q: %s", username, reason)
	}

	keys := util.GeneratePemKeypair()
	acc := &domain.Account{
		Id:            uuid.New(),
		Username:      username,
		WebPublicKey:  keys.Public,
		WebPrivateKey: keys.Private,
		CreatedAt:     time.Now(),
	}
	if err := db.GetDB().CreateAccount(acc); err != nil {
		log.Fatalf("Failed to create account %q: %v", username, err)
	}
	fmt.Printf("Created account %s (%s)\n", username, acc.Id)
}
