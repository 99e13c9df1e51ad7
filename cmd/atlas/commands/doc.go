// Package commands defines the atlas CLI, a terminal client for the country
// directory.
//
// Commands
//
//   - countries       List countries, filtered by --query, --region, --language
//   - show CODE       Show one country and its neighbors
//   - login           Sign in (demo: user@example.com / password)
//   - register        Create an account and sign in
//   - logout          Sign out
//   - whoami          Print the signed-in user
//   - favorites       list | add CODE | remove CODE
//
// # Implementation
//
// The root command opens ~/.atlas/atlas.db before any subcommand runs. That
// one sqlite file holds the accounts, the session token and every user's
// favorites, so a login survives between invocations the way the browser
// cookie does for the web server.
package commands
