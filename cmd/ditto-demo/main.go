// Command ditto-demo simulates several parallel editors working on one
// shared JSON document: it forks a new replica, lets both sides make
// concurrent edits, exchanges the resulting ops, and prints the merged
// result once every replica converges.
//
// Renamed from the teacher's cmd/demo, which drove the same fork/edit/
// sync flow over an HTTP server and a single flat RList. This is a
// sequential CLI walkthrough of the same session shape (load, concurrent
// edits, fork, sync) instead of a server, since the composite JSON CRDT
// this module builds is addressed by pointer rather than edited as a
// single flat list.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/brunokim/crlite/jsonval"
	"github.com/brunokim/crlite/site"
)

var (
	seedDoc = flag.String("doc", `{"title":"agenda","items":["coffee"]}`, "initial JSON document")
)

func main() {
	flag.Parse()

	registry := site.NewRegistry()
	originID, originSite, err := registry.Fork()
	if err != nil {
		log.Fatalf("minting origin site: %v", err)
	}
	fmt.Printf("origin editor: %s (site %d)\n", originID, originSite)

	parsed, err := jsonval.FromStr(*seedDoc)
	if err != nil {
		log.Fatalf("parsing seed document: %v", err)
	}
	// FromStr builds its nodes at site 1; reload them awaiting a site id
	// so the origin editor can take the site the registry minted.
	origin := jsonval.FromState(parsed.State())
	if err := origin.AddSiteID(originSite); err != nil {
		log.Fatalf("assigning origin site: %v", err)
	}

	forkID, forkSite, err := registry.Fork()
	if err != nil {
		log.Fatalf("minting forked site: %v", err)
	}
	fmt.Printf("forked editor: %s (site %d)\n", forkID, forkSite)

	forked := jsonval.FromState(origin.State())
	if err := forked.AddSiteID(forkSite); err != nil {
		log.Fatalf("assigning forked site: %v", err)
	}

	// Both editors make a concurrent, independent edit before syncing.
	originOp, err := origin.Insert("/items/-", "pastry")
	if err != nil {
		log.Fatalf("origin edit: %v", err)
	}
	if _, err := forked.ReplaceText("/title", 0, len("agenda"), "standup agenda"); err != nil {
		log.Fatalf("forked edit: %v", err)
	}
	forkOp, err := forked.Flush("/title")
	if err != nil {
		log.Fatalf("flushing forked edit: %v", err)
	}

	// Exchange ops: each side applies the other's.
	if err := forked.ExecuteOp(originOp); err != nil {
		log.Fatalf("applying origin op on forked replica: %v", err)
	}
	if err := origin.ExecuteOp(forkOp); err != nil {
		log.Fatalf("applying forked op on origin replica: %v", err)
	}

	fmt.Printf("origin converged:  %v\n", origin.ToGoValue())
	fmt.Printf("forked converged:  %v\n", forked.ToGoValue())
}
