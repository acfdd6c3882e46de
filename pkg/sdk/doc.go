// Package quickai embeds the QuickAI quota and premium-entitlement engine in a Go
// process, for chat bots that call the engine directly instead of going through
// the HTTP relay.
//
//	client, _ := quickai.New(ctx, quickai.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	d, err := client.CheckAndConsume(ctx, userID, quickai.Text, false)
//	switch {
//	case err != nil:
//	    // storage is down; treat as a denial
//	case !d.Allowed:
//	    // d.Reason is ReasonDailyLimitReached or ReasonPremiumModelRequired
//	}
//
//	_, _ = client.Grant(ctx, userID, "1m")
//
// Counters, entitlements and preferences share the key layout of the relay, so a
// bot and the relay can point at the same Valkey or Redis.
package quickai
