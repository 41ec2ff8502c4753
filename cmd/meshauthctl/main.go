// Command meshauthctl is an operator CLI over the meshauth service: it
// applies the Postgres schema, manages groups/edges/rules/accounts,
// and loads bulk manifests.
//
// Usage:
//
//	meshauthctl [flags] <command>
//
// Most commands need --db or DATABASE_URL to reach Postgres.
package main

func main() {
	Execute()
}
