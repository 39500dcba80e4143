/*
Package labsdk provides a client for the university lab reservation and equipment
management backend.

# Overview

Every call to the backend goes through one Client, the request pipeline. The
pipeline attaches the session's bearer token, adds a cache-busting stamp to
reads, drives a progress indicator, normalizes the two response envelope
styles the backend uses, and turns every failure into exactly one user-visible
notice and one *APIError.

	client := labsdk.NewClient("http://localhost:5000/api")
	client.Notifier = ui
	client.Progress = ui
	client.Prompter = ui
	client.Navigator = router

	session, err := labsdk.NewSession(ctx, client, labsdk.NewFileCookieStore(path))

	// Authenticate
	_, err = session.Login(ctx, labsdk.Credentials{Username: "alice", Password: "secret"})

	// Query resources
	labs, err := client.Laboratories().List(ctx, labsdk.ListParams{Page: 1, PageSize: 10})

# Response Envelopes

The backend answers in one of two shapes:

	{"success": true, "message": "...", "data": ..., "pagination": {...}}
	{"code": 200 | "SUCCESS" | "CREATED" | "UPDATED" | "DELETED", "message": "...", "data": ...}

Normalize resolves both into a Result. A paginated array payload is rewritten
to {"list", "total", "page", "page_size"}, which DecodePage reads. Anything
that is not a success is an *APIError of KindBusiness. Download bypasses
normalization and returns the raw *http.Response.

# Failures

Non-2xx statuses, timeouts and unreachable backends are reported through the
Notifier once per failure and never retried. A 401 is routed by path:

  - the login endpoint shows the backend's credentials message
  - the logout endpoint is silent
  - anything else starts session recovery

# Session Recovery

Recovery prompts the user that the session expired, logs the session out and
replaces the current screen with the login route. Only one recovery runs at a
time; 401s arriving while it runs are still returned as errors but do not
prompt again. WaitRecovery blocks until the running flow completes.

# Permissions

Permissions are derived from the profile role and never set directly:

  - admin: user, laboratory, equipment, reservation, consumable and course
    management, statistics:view, settings:manage
  - teacher: view and maintain labs and equipment, create and approve
    reservations, use consumables, course:manage, statistics:view
  - student: view labs, equipment and consumables, create and view reservations

Unknown roles have no permissions.

# Thread Safety

Client and Session are safe for concurrent use. Session state is guarded by a
read-write mutex.
*/
package labsdk
