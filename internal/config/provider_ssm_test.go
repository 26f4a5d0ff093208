package config

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	values  map[string]string
	err     error
	batches [][]string
}

func (f *fakeSSM) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.batches = append(f.batches, append([]string(nil), in.Names...))
	if f.err != nil {
		return nil, f.err
	}
	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := f.values[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestSSMProviderSatisfiesSecretProvider(t *testing.T) {
	var _ SecretProvider = (*SSMProvider)(nil)
}

func TestSSMProviderBatchesByTen(t *testing.T) {
	values := make(map[string]string)
	var keys []string
	for i := range 23 {
		k := fmt.Sprintf("/dev/outreach/p%d", i)
		values[k] = fmt.Sprintf("v%d", i)
		keys = append(keys, k)
	}
	fake := &fakeSSM{values: values}
	p := newSSMProviderWithClient("us-east-1", fake)

	got, err := p.GetParametersBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetParametersBatch: %v", err)
	}
	if len(got) != 23 {
		t.Errorf("resolved %d values, want 23", len(got))
	}
	if len(fake.batches) != 3 || len(fake.batches[0]) != 10 || len(fake.batches[2]) != 3 {
		t.Errorf("unexpected batching: %v", fake.batches)
	}
}

func TestSSMProviderInvalidParameter(t *testing.T) {
	fake := &fakeSSM{values: map[string]string{"/a": "1"}}
	p := newSSMProviderWithClient("us-east-1", fake)

	if _, err := p.GetParametersBatch(context.Background(), []string{"/a", "/missing"}); err == nil {
		t.Fatal("expected error for invalid parameter")
	}
}

func TestSSMProviderClientError(t *testing.T) {
	boom := errors.New("throttled")
	p := newSSMProviderWithClient("us-east-1", &fakeSSM{err: boom})

	_, err := p.GetParametersBatch(context.Background(), []string{"/a"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestSSMProviderEmptyKeys(t *testing.T) {
	p := newSSMProviderWithClient("us-east-1", &fakeSSM{})
	got, err := p.GetParametersBatch(context.Background(), nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty map, nil", got, err)
	}
}

func TestSSMProviderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeSSM{values: map[string]string{"/a": "1"}}
	p := newSSMProviderWithClient("us-east-1", fake)
	if _, err := p.GetParametersBatch(ctx, []string{"/a"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if len(fake.batches) != 0 {
		t.Error("no SSM call expected after cancellation")
	}
}
