package lambdaboot

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/store"
)

func TestInitPresets_FallsBackToMemory(t *testing.T) {
	p := InitPresets(nil, "")
	if _, ok := p.(*store.MemoryStore); !ok {
		t.Fatalf("InitPresets = %T, want *store.MemoryStore", p)
	}
	if err := p.Put(context.Background(), &store.Preset{UserID: "u", Name: "a"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestInitS3_EmptyBucket(t *testing.T) {
	if c := InitS3(aws.Config{Region: "us-east-1"}, ""); c != nil {
		t.Errorf("InitS3 = %+v, want nil", c)
	}
	c := InitS3(aws.Config{Region: "us-east-1"}, "share-bucket")
	if c == nil || c.Bucket != "share-bucket" || c.Client == nil || c.Presigner == nil {
		t.Errorf("InitS3 = %+v", c)
	}
}

func TestLoadAnonKey(t *testing.T) {
	t.Setenv(auth.AnonKeyEnvVar, "anon-from-env")
	key, err := LoadAnonKey(context.Background(), nil)
	if err != nil || key != "anon-from-env" {
		t.Errorf("LoadAnonKey = %q, %v", key, err)
	}

	t.Setenv(auth.AnonKeyEnvVar, "")
	if _, err := LoadAnonKey(context.Background(), nil); err == nil {
		t.Error("expected error without env or SSM")
	}
}

func TestStartupLog(t *testing.T) {
	if StartupLog("curator", time.Now()) == nil {
		t.Fatal("StartupLog returned nil")
	}
}
