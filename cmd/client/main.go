// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/streamline/internal/grpcapi"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// A smoke client that walks one task through its lifecycle against a
// running server using shared-secret tokens.
func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	secret := flag.String("secret", os.Getenv("JWT_ACCESS_SECRET"), "HS256 secret the server verifies with")
	issuer := flag.String("issuer", os.Getenv("JWT_ISSUER"), "token issuer")
	manager := flag.String("manager", "M1", "manager user id")
	member := flag.String("member", "U2", "team member user id")
	image := flag.String("image", "", "path of the proof image to upload")
	decision := flag.String("decision", "approved", "review decision")
	flag.Parse()

	if *secret == "" {
		*secret = "dev-access-secret-change-in-production"
	}

	conn, err := grpc.NewClient(*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(grpcapi.MaxMessageSize(5<<20))),
	)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	tokens := auth.NewTokenManager(*secret, 15*time.Minute, *issuer)
	managerClient := grpcapi.NewClient(conn, mustToken(tokens, *manager, auth.RoleManager))
	memberClient := grpcapi.NewClient(conn, mustToken(tokens, *member, auth.RoleTeamMember))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, err := memberClient.UpdateProfile(ctx, "Smoke Tester", "")
	if err != nil {
		log.Fatalf("UpdateProfile failed: %v", err)
	}
	printStep("UpdateProfile", profile)

	team, err := managerClient.ListTeamMembers(ctx)
	if err != nil {
		log.Fatalf("ListTeamMembers failed: %v", err)
	}
	printStep("ListTeamMembers", team)

	deadline := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	created, err := managerClient.CreateTask(ctx, "Daily Report", "Smoke test task", *member, deadline, "image")
	if err != nil {
		log.Fatalf("CreateTask failed: %v", err)
	}
	printStep("CreateTask", created)
	taskID := created.GetFields()["task"].GetStructValue().GetFields()["id"].GetStringValue()

	att := &grpcapi.Attachment{Filename: "proof.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			log.Fatalf("Failed to read image: %v", err)
		}
		att = &grpcapi.Attachment{Filename: filepath.Base(*image), ContentType: "image/" + imageSubtype(*image), Data: data}
	}

	submitted, err := memberClient.SubmitProof(ctx, taskID, "Submitted from the smoke client", att)
	if err != nil {
		log.Fatalf("SubmitProof failed: %v", err)
	}
	printStep("SubmitProof", submitted)

	reviewed, err := managerClient.ReviewTask(ctx, taskID, *decision, "Checked by the smoke client")
	if err != nil {
		log.Fatalf("ReviewTask failed: %v", err)
	}
	printStep("ReviewTask", reviewed)

	events, err := managerClient.ListTaskEvents(ctx, taskID)
	if err != nil {
		log.Fatalf("ListTaskEvents failed: %v", err)
	}
	printStep("ListTaskEvents", events)
}

func mustToken(tm *auth.TokenManager, userID string, role auth.Role) string {
	token, _, err := tm.GenerateAccessToken(userID, role)
	if err != nil {
		log.Fatalf("Failed to mint token for %s: %v", userID, err)
	}
	return token
}

func imageSubtype(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "png"
	}
}

func printStep(name string, msg *structpb.Struct) {
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		log.Fatalf("Failed to encode %s response: %v", name, err)
	}
	fmt.Printf("== %s\n%s\n", name, out)
}
