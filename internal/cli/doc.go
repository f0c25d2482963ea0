// Package cli implements the portal command line client. Each invocation
// restores the persisted session, runs one command and exits; the session
// survives between invocations in the configured store.
//
// Commands:
//
//	signup  -name NAME -email EMAIL     create an account (password prompted)
//	login   -email EMAIL                sign in (password prompted)
//	logout                              end the session
//	whoami                              show the signed-in user
//	profile [-name] [-phone] [-address] [-profession]
//	                                    change profile fields; email is fixed
//	clients [QUERY]                     list the client directory
package cli
