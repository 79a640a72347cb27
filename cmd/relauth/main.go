// Command relauth operates a relationship-based authorization deployment:
// validating and linting a schema, migrating a Postgres store, running
// ad-hoc checks and tuple writes against either backend, and diagnosing a
// running deployment.
package main

func main() {
	Execute()
}
