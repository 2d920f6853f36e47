// Package platform is a typed client for the Conversimple platform REST API.
//
// The API manages three resource families: agents, deployments and the
// account's API key. Every call blocks until the platform responds, the
// configured timeout elapses or ctx is done. Failed calls are never retried.
//
// # Quick Start
//
//	client, err := platform.New(platform.WithAPIKey(os.Getenv("CONVERSIMPLE_API_KEY")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	agent, err := client.Agents.Create(ctx, platform.CreateAgentParams{
//	    Name:        "Support Bot",
//	    Description: "Customer support agent",
//	})
//
//	dep, err := client.Deployments.Create(ctx, platform.CreateDeploymentParams{
//	    Name:    "Support Widget",
//	    AgentID: agent.ID,
//	    Channel: platform.ChannelWidget,
//	})
//
// # Partial Updates
//
// Optional request fields use Optional. Unset fields are left out of the
// request entirely; Some("") sends an empty string.
//
//	client.Agents.Update(ctx, id, platform.UpdateAgentParams{
//	    Status: platform.Some(platform.AgentStatusArchived),
//	})
//
// # Error Handling
//
// Errors reported by the platform are typed by status code and can be
// inspected with errors.As or the Is* helpers:
//
//	var verr *platform.ValidationError
//	if errors.As(err, &verr) {
//	    for field, msg := range verr.Errors {
//	        // ...
//	    }
//	}
//
// Every typed error unwraps to *APIError, which carries the status code and
// the decoded response body.
package platform
