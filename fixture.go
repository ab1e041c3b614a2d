package fixtures

import (
	"context"
	"fmt"
	"reflect"
)

type BaseFixture struct{}

func (f *BaseFixture) Type() string {
	return fmt.Sprint(reflect.TypeOf(f).Elem())
}

type Fixture interface {
	Type() string
	SetUp(ctx context.Context) error
	TearDown(ctx context.Context) error
}

func fixtureType(f Fixture) string {
	t := reflect.TypeOf(f)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return fmt.Sprint(t)
}
